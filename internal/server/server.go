package server

import (
	"context"
	"strconv"
	"time"

	"backend-livetrack/internal/auth"
	"backend-livetrack/internal/config"
	"backend-livetrack/internal/device"
	"backend-livetrack/internal/geo"
	"backend-livetrack/internal/history"
	"backend-livetrack/internal/replay"
	"backend-livetrack/internal/routing"
	"backend-livetrack/internal/sample"
	"backend-livetrack/internal/stream"
	"backend-livetrack/internal/track"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Feed     *sample.Feed
	Trackers *track.Manager
	Router   *routing.Client
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	router := routing.NewClient(cfg.OSRMURL)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   hub,
		Feed:     sample.NewFeed(redisClient),
		Trackers: track.NewManager(router, hub),
		Router:   router,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	store := sample.NewStore(s.DB)
	loader := history.NewLoader(store, s.Router, s.Stream)
	replayMgr := replay.NewManager(s.Trackers, store, s.Stream)

	onClear := func(deviceID string) {
		s.Trackers.Tracker(deviceID).SetTrajectory(nil)
		stream.Notify(s.Stream, deviceID, "route history cleared")
	}

	device.RegisterRoutes(s.App.Group("/devices"), device.NewService(s.DB), jwtMiddleware)
	sample.RegisterRoutes(s.App.Group("/gps"), store, s.Feed, onClear, jwtMiddleware)
	track.RegisterRoutes(s.App.Group("/tracking"), s.Trackers, jwtMiddleware)
	history.RegisterRoutes(s.App.Group("/history"), loader, s.Trackers, jwtMiddleware)
	replay.RegisterRoutes(s.App.Group("/replay"), replayMgr, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)

	s.App.Get("/routes/directions", func(c *fiber.Ctx) error {
		from, err1 := pointFromQuery(c, "from_lat", "from_lng")
		to, err2 := pointFromQuery(c, "to_lat", "to_lng")
		if err1 != nil || err2 != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from_lat, from_lng, to_lat and to_lng required")
		}
		dir, err := s.Router.Route(c.Context(), from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(dir)
	})
}

func pointFromQuery(c *fiber.Ctx, latKey, lngKey string) (geo.Point, error) {
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		return geo.Point{}, err
	}
	lng, err := strconv.ParseFloat(c.Query(lngKey), 64)
	if err != nil {
		return geo.Point{}, err
	}
	return geo.Point{Lat: lat, Lng: lng}, nil
}

// ConsumeFeed pipes the realtime sample feed of one device into its
// tracker, resubscribing with a viewer notice when the feed drops.
func (s *Server) ConsumeFeed(ctx context.Context, deviceID string) {
	if s.Redis == nil {
		return
	}
	tracker := s.Trackers.Tracker(deviceID)

	go func() {
		for {
			sub := s.Feed.Subscribe(ctx, deviceID)
			for raw := range sub.C {
				tracker.Offer(raw)
			}
			sub.Close()

			if ctx.Err() != nil {
				return
			}
			stream.Notify(s.Stream, deviceID, "live feed interrupted, reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()
}
