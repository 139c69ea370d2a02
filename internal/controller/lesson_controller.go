package controller

import (
	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/pkg/apperrors"
	"ai-lessongen-be/internal/pkg/serverutils"
	"ai-lessongen-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILessonController interface {
	RegisterRoutes(r fiber.Router)
	Process(ctx *fiber.Ctx) error
	Result(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Cleanup(ctx *fiber.Ctx) error
	Finalize(ctx *fiber.Ctx) error
	FoundationPrompt(ctx *fiber.Ctx) error
}

type lessonController struct {
	generationService service.IGenerationService
}

func NewLessonController(generationService service.IGenerationService) ILessonController {
	return &lessonController{
		generationService: generationService,
	}
}

func (c *lessonController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/lesson/v1")
	h.Get("foundation-prompt", c.FoundationPrompt)
	h.Get("result/:sessionId", c.Result)
	h.Post("cancel/:sessionId", c.Cancel)
	h.Post("cleanup/:sessionId", c.Cleanup)

	protected := h.Group("")
	protected.Use(serverutils.JwtMiddleware)
	protected.Post("process", c.Process)
	protected.Post("finalize", c.Finalize)
}

func (c *lessonController) Process(ctx *fiber.Ctx) error {
	req := dto.SubmitLessonRequest{
		Title:    ctx.FormValue("title"),
		CourseId: ctx.FormValue("course_id"),
		Prompt:   ctx.FormValue("prompt"),
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("document")
	if err != nil {
		return apperrors.NewValidationError("document file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("document file is unreadable")
	}
	defer file.Close()

	res, err := c.generationService.Submit(ctx.Context(), &req, &service.UploadedDocument{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
	})
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Generation started", res))
}

func (c *lessonController) Result(ctx *fiber.Ctx) error {
	res, err := c.generationService.Result(ctx.Context(), ctx.Params("sessionId"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get lesson result", res))
}

func (c *lessonController) Cancel(ctx *fiber.Ctx) error {
	if err := c.generationService.Cancel(ctx.Context(), ctx.Params("sessionId")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Generation cancelled", nil))
}

func (c *lessonController) Cleanup(ctx *fiber.Ctx) error {
	if err := c.generationService.Cleanup(ctx.Context(), ctx.Params("sessionId")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session cleaned up", nil))
}

func (c *lessonController) Finalize(ctx *fiber.Ctx) error {
	var req dto.FinalizeLessonRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	token, _ := ctx.Locals("token").(string)
	res, err := c.generationService.Finalize(ctx.Context(), &req, token)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Lesson published", res))
}

func (c *lessonController) FoundationPrompt(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get foundation prompt", c.generationService.FoundationPrompt()))
}
