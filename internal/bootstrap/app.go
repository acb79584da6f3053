// Package bootstrap loads configuration, wires every component, and owns the
// application lifecycle.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/slumio/Bro-code/internal/handler/http"
	wsHandler "github.com/slumio/Bro-code/internal/handler/websocket"
	"github.com/slumio/Bro-code/internal/hub"
	gormpersistence "github.com/slumio/Bro-code/internal/infra/persistence/gorm"
	"github.com/slumio/Bro-code/internal/infra/setup"
	redisstate "github.com/slumio/Bro-code/internal/infra/state/redis"
	"github.com/slumio/Bro-code/internal/middleware"
	"github.com/slumio/Bro-code/internal/registry"
	"github.com/slumio/Bro-code/internal/service"
	"github.com/slumio/Bro-code/internal/tasks"
	"github.com/slumio/Bro-code/internal/worker"
)

// Config holds everything read from the environment at startup.
type Config struct {
	DBUser        string
	DBPassword    string
	DBHost        string
	DBPort        string
	DBName        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ServerPort    string
	LogLevel      string
	AppEnv        string
	KeyPrefix     string

	RateLimitMax    int
	RateLimitWindow time.Duration

	RoomRetention time.Duration
	UserRetention time.Duration
	PurgeSchedule string
	AuditSchedule string
}

// LoadConfig reads configuration from the environment, preferring a .env
// file when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		AppEnv:        os.Getenv("APP_ENV"),
		KeyPrefix:     os.Getenv("REDIS_KEY_PREFIX"),
		PurgeSchedule: os.Getenv("MAINTENANCE_PURGE_SCHEDULE"),
		AuditSchedule: os.Getenv("MAINTENANCE_AUDIT_SCHEDULE"),

		RateLimitMax:    100,
		RateLimitWindow: 1 * time.Second,
		RoomRetention:   720 * time.Hour,
		UserRetention:   24 * time.Hour,
	}

	redisDBStr := os.Getenv("REDIS_DB")
	cfg.RedisDB, _ = strconv.Atoi(redisDBStr)

	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitMax = n
		}
	}
	if v := os.Getenv("ROOM_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RoomRetention = d
		}
	}
	if v := os.Getenv("USER_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.UserRetention = d
		}
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "bc:"
	}
	if cfg.PurgeSchedule == "" {
		cfg.PurgeSchedule = "@every 1h"
	}
	if cfg.AuditSchedule == "" {
		cfg.AuditSchedule = "@every 6h"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App holds all the components of the running application.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server

	redisClientOpt asynq.RedisClientOpt
	scheduler      *asynq.Scheduler
}

// NewApp creates and wires all application components.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Info("Configuration loaded successfully")

	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Asynq client initialized")

	log.Info("Initializing repositories...")
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	fileRepo := gormpersistence.NewGormFileRepository(db)
	chatRepo := gormpersistence.NewGormChatRepository(db)
	userRepo := gormpersistence.NewGormUserRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)

	log.Info("Initializing services...")
	reg := registry.New()
	reconciler := service.NewReconciler(fileRepo, log)
	treeService := service.NewTreeService(fileRepo, roomRepo, reconciler, log)
	presenceService := service.NewPresenceService(reg, userRepo, log)
	roomService := service.NewRoomService(roomRepo, chatRepo, fileRepo, userRepo, stateRepo, log)
	maintenanceService := service.NewMaintenanceService(roomRepo, fileRepo, chatRepo, userRepo, stateRepo, cfg.RoomRetention, cfg.UserRetention, log)

	log.Info("Initializing hub...")
	hubInstance := hub.NewHub(presenceService, roomService, treeService, log)

	log.Info("Initializing handlers...")
	roomHandler := httpHandler.NewRoomHandler(roomService, treeService)
	socketHandler := wsHandler.NewWebSocketHandler(hubInstance)

	log.Info("Initializing worker server...")
	workerServer := worker.NewWorkerServer(redisClientOpt, maintenanceService, log)

	log.Info("Setting up Gin router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(stateRepo, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	{
		api.GET("/status", roomHandler.Status)
		api.GET("/rooms", roomHandler.ListRooms)
		api.GET("/rooms/:roomId", roomHandler.GetRoom)
	}
	router.GET("/ws", socketHandler.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	app := &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// Start launches the hub, worker, scheduler, and HTTP server.
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.Log.Info("Asynq worker server routine started")

	a.registerPeriodicTasks()
	a.enqueueStartupMaintenance()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})
	a.scheduler = scheduler

	purgePayload, err := tasks.NewMaintenancePurgeTask("scheduled")
	if err != nil {
		a.Log.Errorf("Failed to create purge task payload: %v", err)
		return
	}
	if entryID, err := scheduler.Register(a.Config.PurgeSchedule, asynq.NewTask(tasks.TypeMaintenancePurge, purgePayload), asynq.Queue("low")); err != nil {
		a.Log.Errorf("Could not register periodic purge task: %v", err)
	} else {
		a.Log.Infof("Periodic purge task registered with schedule '%s' (EntryID: %s)", a.Config.PurgeSchedule, entryID)
	}

	auditPayload, err := tasks.NewMaintenanceAuditTask("scheduled")
	if err != nil {
		a.Log.Errorf("Failed to create audit task payload: %v", err)
		return
	}
	if entryID, err := scheduler.Register(a.Config.AuditSchedule, asynq.NewTask(tasks.TypeMaintenanceAudit, auditPayload), asynq.Queue("low")); err != nil {
		a.Log.Errorf("Could not register periodic audit task: %v", err)
	} else {
		a.Log.Infof("Periodic audit task registered with schedule '%s' (EntryID: %s)", a.Config.AuditSchedule, entryID)
	}

	go func() {
		a.Log.Info("Asynq scheduler starting...")
		if err := scheduler.Run(); err != nil {
			if !errors.Is(err, asynq.ErrServerClosed) {
				a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
			} else {
				a.Log.Info("Asynq scheduler stopped.")
			}
		}
	}()
}

// enqueueStartupMaintenance runs one purge and one audit immediately so a
// long-stopped instance catches up without waiting for the next tick.
func (a *App) enqueueStartupMaintenance() {
	for taskType, build := range map[string]func(string) ([]byte, error){
		tasks.TypeMaintenancePurge: tasks.NewMaintenancePurgeTask,
		tasks.TypeMaintenanceAudit: tasks.NewMaintenanceAuditTask,
	} {
		payload, err := build("startup")
		if err != nil {
			a.Log.Errorf("Failed to build startup %s payload: %v", taskType, err)
			continue
		}
		if _, err := a.AsynqClient.Enqueue(asynq.NewTask(taskType, payload), asynq.Queue("low")); err != nil {
			a.Log.Errorf("Failed to enqueue startup %s task: %v", taskType, err)
		}
	}
}

// Shutdown stops the components in dependency order.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	a.Log.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// The server no longer accepts upgrades, so the hub loop can stop.
	if a.Hub != nil {
		a.Hub.Stop()
	}

	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware logs one line per HTTP request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowedOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
		if allowedOrigin == "" {
			allowedOrigin = "http://localhost:3000"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
