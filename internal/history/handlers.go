package history

import (
	"backend-livetrack/internal/track"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, loader *Loader, trackers *track.Manager, authMiddleware fiber.Handler) {
	r.Post("/:deviceID/load", authMiddleware, func(c *fiber.Ctx) error {
		deviceID := c.Params("deviceID")
		points, err := loader.Load(c.Context(), deviceID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		// replaces the trajectory wholesale; an empty load clears the path
		trackers.Tracker(deviceID).SetTrajectory(points)
		return c.JSON(fiber.Map{"device_id": deviceID, "points": len(points)})
	})
}
