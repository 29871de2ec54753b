package replay

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, mgr *Manager, authMiddleware fiber.Handler) {
	r.Post("/:deviceID/start", authMiddleware, func(c *fiber.Ctx) error {
		if err := mgr.Start(c.Params("deviceID")); err != nil {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return c.JSON(fiber.Map{"state": "playing"})
	})

	r.Post("/:deviceID/stop", authMiddleware, func(c *fiber.Ctx) error {
		stopped := mgr.Stop(c.Params("deviceID"))
		return c.JSON(fiber.Map{"state": "idle", "stopped": stopped})
	})

	r.Patch("/:deviceID/speed", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			SpeedMs int `json:"speed_ms"`
		}
		if err := c.BodyParser(&body); err != nil || body.SpeedMs < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "speed_ms must be a positive integer")
		}
		mgr.SetSpeed(c.Params("deviceID"), body.SpeedMs)
		return c.JSON(fiber.Map{"speed_ms": body.SpeedMs})
	})
}
