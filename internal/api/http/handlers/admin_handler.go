package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/collections-sequencer/internal/service"
	"github.com/spec-kit/collections-sequencer/internal/worker"
)

// AdminHandler exposes operational commands.
type AdminHandler struct {
	sequences *service.SequenceService
	ticker    *worker.TickWorker
}

// NewAdminHandler constructs handler.
func NewAdminHandler(sequences *service.SequenceService, ticker *worker.TickWorker) *AdminHandler {
	return &AdminHandler{sequences: sequences, ticker: ticker}
}

// RunTicks POST /admin/ticks/run runs a batch tick immediately.
func (h *AdminHandler) RunTicks(c *fiber.Ctx) error {
	result, err := h.ticker.Run(c.Context(), time.Now(), h.sequences.EngineConfig())
	if err != nil {
		return err
	}
	skipped := make([]fiber.Map, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped = append(skipped, fiber.Map{"sequence_id": s.SequenceID, "reason": s.Reason})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"evaluated": result.Evaluated,
		"advanced":  result.Advanced,
		"skipped":   skipped,
	}})
}
