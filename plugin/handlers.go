package plugin

import (
	"github.com/gofiber/fiber/v2"
)

// PostDemo exposes the built-in annotator over HTTP so a default install
// has a working PLUGIN_ENDPOINTS target to point at.
func PostDemo(c *fiber.Ctx) error {
	var event Event
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	return c.JSON(Demo(event))
}
