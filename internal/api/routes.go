package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/trade-ingest/internal/dedupe"
	"github.com/Checker-Finance/trade-ingest/internal/ingest"
)

// RegisterRoutes mounts the read-only ops endpoints. nc may be nil when no
// NATS sink is configured.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, guard dedupe.Guard, svc *ingest.Service) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"ingest": string(svc.State()),
			"dedupe": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if nc != nil {
			checks["nats"] = "ok"
			if !nc.IsConnected() {
				checks["nats"] = "disconnected"
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
				checks["nats"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := guard.HealthCheck(healthCtx); err != nil {
			checks["dedupe"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// Pipeline counters snapshot
	app.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(svc.Stats())
	})
}
