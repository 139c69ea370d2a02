package controller

import (
	"ai-lessongen-be/internal/dto"
	"ai-lessongen-be/internal/pkg/serverutils"
	"ai-lessongen-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	Context(ctx *fiber.Ctx) error
	Related(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	Cleanup(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatService service.IChatService
}

func NewChatbotController(chatService service.IChatService) IChatbotController {
	return &chatbotController{
		chatService: chatService,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Get("health", c.Health)
	h.Post("cleanup", c.Cleanup)

	protected := h.Group("")
	protected.Use(serverutils.JwtMiddleware)
	protected.Get("context/:lessonId", c.Context)
	protected.Get("related/:lessonId", c.Related)
	protected.Post("send", c.Send)
}

func (c *chatbotController) Context(ctx *fiber.Ctx) error {
	token, _ := ctx.Locals("token").(string)
	res, err := c.chatService.ContextInfo(ctx.Context(), ctx.Params("lessonId"), token)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get lesson context", res))
}

func (c *chatbotController) Related(ctx *fiber.Ctx) error {
	token, _ := ctx.Locals("token").(string)
	res, err := c.chatService.Related(ctx.Context(), ctx.Params("lessonId"), token)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get related lessons", res))
}

func (c *chatbotController) Send(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	token, _ := ctx.Locals("token").(string)
	res, err := c.chatService.Send(ctx.Context(), &req, token)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat message", res))
}

func (c *chatbotController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Chat service healthy", c.chatService.Health()))
}

func (c *chatbotController) Cleanup(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Idle sessions removed", c.chatService.Cleanup()))
}
