package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"locatrack-backend/config"
	"locatrack-backend/controllers"
	"locatrack-backend/models"
	"locatrack-backend/routes"
	"locatrack-backend/services"
	"locatrack-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	log := utils.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализация базы данных
	db, err := models.InitDB(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	// Автомиграция
	if err := models.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	// Redis необязателен: без него кэш дубликатов и блокировки живут в процессе
	var (
		cache  services.DuplicateCache
		locker services.Locker
	)
	rdb, err := config.ConnectRedis(ctx, cfg)
	switch {
	case err != nil:
		log.WithError(err).Warn("redis unavailable; using in-process cache and locks")
		fallthrough
	case rdb == nil:
		cache = services.NewMemoryDuplicateCache(cfg.DuplicateCacheTTL, nil)
		locker = services.NewLocalLocker()
	default:
		defer rdb.Close()
		cache = services.NewRedisDuplicateCache(rdb, cfg.DuplicateCacheTTL)
		locker = services.NewRedisLocker(rdb)
		log.WithField("addr", cfg.RedisAddress).Info("connected to redis")
	}

	// Инициализация WebSocket хаба
	hub := services.NewHub(log)
	go hub.Run(ctx)

	app := newApp(ctx, cfg, db, log, hub, cache, locker)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	log.WithField("port", cfg.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// newApp собирает сервисы, контроллеры и маршруты и запускает фоновые задачи до отмены ctx
func newApp(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logrus.Logger, hub *services.Hub, cache services.DuplicateCache, locker services.Locker) *fiber.App {
	locations := services.NewLocationService(db)
	sync := services.NewProjectionSync(db, locations, cfg.MissingLocationPolicy, hub, log)
	duplicates := services.NewDuplicateIndex(db, cache, cfg.DuplicateCacheTTL, nil, hub, log)
	rebuilder := services.NewProjectionRebuilder(db, sync, locker, hub, log)

	go duplicates.RunSweeper(ctx)
	if cfg.ProjectionRepairInterval > 0 {
		go rebuilder.RunRepairLoop(ctx, cfg.ProjectionRepairInterval)
	}

	// Создание Fiber приложения
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Cache-Control, Pragma",
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Инициализация контроллеров
	inventoryController := controllers.NewInventoryController(
		services.NewInventoryService(db, locations, sync, duplicates, log),
		services.NewRelocationService(db, locations, sync, log),
		services.NewPlacementService(db, locations, duplicates, nil, log),
		log,
	)
	duplicateController := controllers.NewDuplicateController(duplicates, log)
	missingItemController := controllers.NewMissingItemController(services.NewMissingItemService(db), rebuilder, log)

	// Настройка маршрутов
	routes.SetupInventoryRoutes(app, inventoryController)
	routes.SetupDuplicateRoutes(app, duplicateController)
	routes.SetupMissingItemRoutes(app, missingItemController)
	routes.SetupWebSocketRoutes(app, hub)

	// Общий health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"message":   "Locatrack Backend is running",
			"timestamp": time.Now().Unix(),
		})
	})

	return app
}
