package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var errNotConfigured = errors.New("not configured")

// probe is one readiness dependency. Optional probes report their state
// without failing readiness when the dependency is absent.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

func probes(deps *Dependencies) []probe {
	return []probe{
		{name: "database", required: true, check: func(ctx context.Context) error {
			if deps.DB == nil {
				return errNotConfigured
			}
			return deps.DB.Pool.Ping(ctx)
		}},
		{name: "nats", check: func(ctx context.Context) error {
			switch {
			case deps.NATS == nil:
				return errNotConfigured
			case !deps.NATS.IsConnected():
				return errors.New("disconnected")
			}
			return nil
		}},
		{name: "cache", check: func(ctx context.Context) error {
			if deps.Cache == nil {
				return errNotConfigured
			}
			return deps.Cache.Ping(ctx)
		}},
	}
}

// HealthHandler reports liveness only.
func HealthHandler() fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": Version,
		})
	}
}

// ReadyHandler probes the database, NATS and the cache. Only the database
// is required; a configured optional dependency that fails still fails
// readiness.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	list := probes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(list))
		ready := true
		for _, p := range list {
			err := p.check(ctx)
			switch {
			case err == nil:
				checks[p.name] = "ok"
			case errors.Is(err, errNotConfigured):
				checks[p.name] = err.Error()
				ready = ready && !p.required
			default:
				checks[p.name] = "error: " + err.Error()
				ready = false
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
