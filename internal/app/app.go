package app

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onboard_proctor_backend/internal/config"
	"onboard_proctor_backend/internal/controller"
	"onboard_proctor_backend/internal/repository"
	"onboard_proctor_backend/internal/service"
	"onboard_proctor_backend/pkg/database"
	"onboard_proctor_backend/pkg/logger"
	"onboard_proctor_backend/pkg/monitoring"
	"onboard_proctor_backend/pkg/security"
	"onboard_proctor_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	attempt *repository.AttemptRepository
	session *repository.SessionRepository
}

type services struct {
	storage      *service.StorageService
	notification *service.NotificationService
	heartbeat    *service.HeartbeatService
	recording    *service.RecordingService
	proctor      *service.ProctorService
}

type controllers struct {
	assessment *controller.AssessmentController
	recording  *controller.RecordingController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig pushes a freshly reloaded config to every registered
// callback. Invoked from the config watcher goroutine.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		attempt: repository.NewAttemptRepository(db),
		session: repository.NewSessionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.notification = service.NewNotificationService(rdb, cfg.Proctor.NotifyChannel)
	s.heartbeat = service.NewHeartbeatService(rdb, time.Duration(cfg.Proctor.HeartbeatTTLSeconds)*time.Second)
	s.recording = service.NewRecordingService(repos.session, s.storage)

	s.proctor = service.NewProctorService(repos.attempt, repos.session, s.notification, s.heartbeat, rand.New(rand.NewSource(time.Now().UnixNano())))
	s.proctor.SetSessionTimeout(time.Duration(cfg.Proctor.SessionTimeoutMinutes) * time.Minute)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.proctor),
		recording:  controller.NewRecordingController(s.recording),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// Stale-session sweep. A timeout of zero makes each pass a no-op, so
	// the ticker is harmless when the reaper is disabled.
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			reaped, err := s.proctor.ReapStaleSessions(context.Background())
			if err != nil {
				logger.Log.Error("stale session sweep error", zap.Error(err))
				continue
			}
			if reaped > 0 {
				logger.Log.Info("stale sessions terminated", zap.Int("count", reaped))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.proctor.SetSessionTimeout(time.Duration(newCfg.Proctor.SessionTimeoutMinutes) * time.Minute)
		logger.Log.Info("proctor policy reloaded",
			zap.Int("sessionTimeoutMinutes", newCfg.Proctor.SessionTimeoutMinutes))
	})

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("onboarding-proctor", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
