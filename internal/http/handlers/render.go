package handlers

import "github.com/gofiber/fiber/v2"

func render(c *fiber.Ctx, tmpl string, data fiber.Map, layout ...string) error {
	if data == nil {
		data = fiber.Map{}
	}
	// token put into Locals by the CSRF middleware
	if tok, _ := c.Locals("csrf").(string); tok != "" {
		data["CSRFToken"] = tok
	}
	if rid, _ := c.Locals("requestid").(string); rid != "" {
		data["RequestID"] = rid
	}
	return c.Render(tmpl, data, layout...)
}
