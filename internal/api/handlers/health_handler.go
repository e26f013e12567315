package handlers

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"github.com/postpilot/postpilot/internal/scheduler"
)

type HealthHandler struct {
	db    *sql.DB
	sched *scheduler.Scheduler
}

func NewHealthHandler(db *sql.DB, sched *scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{db: db, sched: sched}
}

func (h *HealthHandler) Healthz(c *fiber.Ctx) error {
	if err := h.db.PingContext(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *HealthHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.sched.Stats())
}
