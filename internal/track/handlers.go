package track

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, mgr *Manager, authMiddleware fiber.Handler) {
	r.Post("/:deviceID/follow", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Enabled *bool `json:"enabled"`
		}
		if err := c.BodyParser(&body); err != nil || body.Enabled == nil {
			return fiber.NewError(fiber.StatusBadRequest, "enabled required")
		}
		deviceID := c.Params("deviceID")
		mgr.Tracker(deviceID).SetFollow(*body.Enabled)
		return c.JSON(fiber.Map{"device_id": deviceID, "follow": *body.Enabled})
	})

	r.Get("/:deviceID/trajectory", func(c *fiber.Ctx) error {
		points := mgr.Tracker(c.Params("deviceID")).Trajectory()
		return c.JSON(fiber.Map{"points": points})
	})
}
