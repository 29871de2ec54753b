package sample

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const defaultWindow = 100

// RegisterRoutes wires the ingest and history-window endpoints. onClear,
// when set, runs after a successful destructive clear so the live
// trajectory can be dropped and viewers notified.
func RegisterRoutes(r fiber.Router, store *Store, feed *Feed, onClear func(deviceID string), authMiddleware fiber.Handler) {
	r.Post("/:deviceID/samples", authMiddleware, func(c *fiber.Ctx) error {
		var raw Raw
		if err := c.BodyParser(&raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !raw.Usable() {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid GPS sample")
		}

		deviceID := c.Params("deviceID")
		rec, err := store.Insert(c.Context(), deviceID, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if err := feed.Publish(c.Context(), deviceID, raw); err != nil {
			log.Printf("feed publish error: %v", err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	r.Get("/:deviceID/samples", func(c *fiber.Ctx) error {
		limit := defaultWindow
		if v := c.Query("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
			}
			limit = parsed
		}
		samples, err := store.Recent(c.Context(), c.Params("deviceID"), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(samples)
	})

	r.Get("/:deviceID/samples/latest", func(c *fiber.Ctx) error {
		rec, err := store.Latest(c.Context(), c.Params("deviceID"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no samples recorded")
		}
		return c.JSON(rec)
	})

	r.Delete("/:deviceID/samples", authMiddleware, func(c *fiber.Ctx) error {
		deviceID := c.Params("deviceID")
		if err := store.Clear(c.Context(), deviceID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if onClear != nil {
			onClear(deviceID)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
