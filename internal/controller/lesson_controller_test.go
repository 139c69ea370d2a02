package controller

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestLessonRoutesRegistered(t *testing.T) {
	app := fiber.New()
	api := app.Group("/api")
	NewLessonController(nil).RegisterRoutes(api)

	registered := make(map[string]bool)
	for _, route := range app.GetRoutes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /api/lesson/v1/foundation-prompt",
		"GET /api/lesson/v1/result/:sessionId",
		"POST /api/lesson/v1/cancel/:sessionId",
		"POST /api/lesson/v1/cleanup/:sessionId",
		"POST /api/lesson/v1/process",
		"POST /api/lesson/v1/finalize",
	} {
		assert.True(t, registered[want], fmt.Sprintf("missing route %s", want))
	}
}
