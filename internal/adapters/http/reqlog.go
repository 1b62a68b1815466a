package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mobilebook/internal/pkg/logging"
)

// RequestIDLogMiddleware stores a request-scoped logger carrying the Fiber
// request ID in the user context, so services log with it via
// logging.FromContext.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, ok := c.Locals("requestid").(string)
		if !ok || rid == "" {
			return c.Next()
		}

		l := logging.FromContext(c.UserContext()).With("request_id", rid)
		c.SetUserContext(logging.NewContext(c.UserContext(), l))
		return c.Next()
	}
}
