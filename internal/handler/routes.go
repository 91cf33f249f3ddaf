package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/cache"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/session"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/task"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/repository"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/services/call"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/storage"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/redis"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/twilio"
	"github.com/gorilla/mux"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

// HandlerManager manages all handlers and their initialization
type HandlerManager struct {
	config      *config.ServiceConfig
	service     *call.CallService
	repoManager repository.RepositoryManager
	taskBus     task.Bus

	// Twilio TURN credentials (optional, only initialized if configured)
	twilioTokens *twilio.TokenService
}

// NewHandlerManager creates and initializes all handlers and services
func NewHandlerManager(cfg *config.ServiceConfig) (*HandlerManager, error) {
	// Initialize database connection
	repoManager, err := repository.NewRepositoryManager()
	if err != nil {
		logger.Base().Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	// Initialize Redis service for the session registry and task bus
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}
	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")

	redisConfig := &redis.RedisConfig{
		Host:     redisHost,
		Port:     redisPort,
		Password: redisPassword,
		DB:       0, // Default DB
	}
	redisSvc, err := redis.NewRedisService(redisConfig)
	if err != nil {
		logger.Base().Warn("failed to initialize redis service, running without session registry", zap.Error(err))
	}

	// Initialize the session registry and task bus. Both require Redis; a
	// single instance runs fine without them.
	var sessionManager *session.Manager
	var taskBus task.Bus
	if redisSvc != nil {
		instanceID := cfg.InstanceID
		if instanceID == "" {
			instanceID = "default-instance"
		}
		sessionManager = session.NewManager(redisSvc, instanceID)
		taskBus = task.NewRedisBus(redisSvc)
		logger.Base().Info("session registry and task bus initialized", zap.String("instance_id", instanceID))
	}

	// Initialize call archive if enabled
	logger.Base().Info("call archive config",
		zap.Bool("enabled", cfg.ArchiveEnabled),
		zap.String("type", cfg.ArchiveStorageType),
		zap.String("path", cfg.ArchiveStoragePath),
	)

	if cfg.ArchiveEnabled && cfg.ArchiveStoragePath != "" {
		ctx := context.Background()
		storageType := storage.StorageType(cfg.ArchiveStorageType)
		if err := storage.InitCallArchive(ctx, true, storageType, cfg.ArchiveStoragePath); err != nil {
			logger.Base().Warn("failed to initialize call archive, continue without archiving",
				zap.Error(err),
				zap.String("type", cfg.ArchiveStorageType),
				zap.String("path", cfg.ArchiveStoragePath),
			)
		} else {
			logger.Base().Info("call archive initialized",
				zap.String("type", cfg.ArchiveStorageType),
				zap.String("path", cfg.ArchiveStoragePath),
			)
		}
	} else {
		logger.Base().Info("call archive disabled",
			zap.Bool("enabled", cfg.ArchiveEnabled),
			zap.String("type", cfg.ArchiveStorageType),
			zap.String("path", cfg.ArchiveStoragePath),
		)
	}

	// Create the call service with the session registry and task bus
	service := call.NewCallService(
		config.LoadStreamConfig(),
		config.LoadTranscriptConfig(),
		repoManager,
		sessionManager,
		taskBus,
	)
	service.SetMaxSessions(cfg.MaxSessions)

	// Warm the voice settings cache before the first call arrives
	service.ReloadVoiceSettings()

	// Start distributed task processor
	if err := service.StartTaskProcessor(context.Background()); err != nil {
		logger.Base().Error("failed to start distributed task processor", zap.Error(err))
	}

	// Initialize Twilio TURN token service (optional)
	var twilioTokens *twilio.TokenService
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twilioTokens = twilio.NewTokenService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, true)
		logger.Base().Info("twilio TURN token service initialized")
	} else {
		logger.Base().Info("twilio TURN credentials not configured, serving STUN only")
	}

	// Start automatic cleanup routine for inactive call sessions
	go service.StartCleanupRoutine(
		context.Background(),
		cfg.CleanupInterval,
		cfg.InactivityTimeout,
	)

	return &HandlerManager{
		config:       cfg,
		service:      service,
		repoManager:  repoManager,
		taskBus:      taskBus,
		twilioTokens: twilioTokens,
	}, nil
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	// Apply global middleware
	router.Use(CORSMiddleware)
	router.Use(GlobalLoggingMiddleware)

	// WebSocket routes must be registered before the /api subrouter: both
	// match the /api prefix and mux dispatches to the first registered match.
	hm.SetupWebSocketRoutes(router)

	// Setup REST API routes
	hm.SetupAPIRoutes(router)

	// Setup ICE config routes
	hm.SetupICEConfigRoutes(router)

	// Setup health and diagnostics routes
	hm.SetupDiagnosticsRoutes(router)

	// Setup swagger spec route
	hm.SetupSwaggerRoutes(router)

	logger.Base().Info("all application routes registered")
}

// SetupAPIRoutes sets up all REST API routes and middleware
func (hm *HandlerManager) SetupAPIRoutes(router *mux.Router) {
	// Create API subrouter with middleware
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Apply middleware to all API routes
	apiRouter.Use(LoggingMiddleware)
	apiRouter.Use(ValidationMiddleware)
	if hm.config.SecretKey != "" {
		apiRouter.Use(BearerAuthMiddleware(hm.config.SecretKey))
		logger.Base().Info("api routes protected with bearer auth")
	} else {
		logger.Base().Info("api routes registered without auth (development mode)")
	}
	// Rate limiting runs after auth so it can key on the tenant claim.
	if hm.config.RateLimitRPS > 0 {
		apiRouter.Use(RateLimitMiddleware(hm.config.RateLimitRPS))
		logger.Base().Info("api rate limiting enabled",
			zap.Int("requests_per_second", hm.config.RateLimitRPS))
	}

	// Create handlers and setup routes (not stored in struct)
	callHandler := NewCallHandler(hm.service, hm.repoManager)
	callHandler.SetupCallRoutes(apiRouter)

	voiceSettingsHandler := NewVoiceSettingsHandler(hm.repoManager.VoiceSettings(), cache.NewSettingsCache(), hm.taskBus)
	voiceSettingsHandler.SetupVoiceSettingsRoutes(apiRouter)

	tenantHandler := NewTenantHandler(hm.repoManager.Tenants())
	tenantHandler.SetupTenantRoutes(apiRouter)

	contactHandler := NewContactHandler(hm.config.ConsoleAPIURL)
	contactHandler.SetupContactRoutes(apiRouter)

	// Setup CORS middleware for all API routes
	router.PathPrefix("/api/").HandlerFunc(handleCORS).Methods("OPTIONS")

	logger.Base().Info("rest api routes registered")
}

// SetupWebSocketRoutes sets up the console WebSocket routes
func (hm *HandlerManager) SetupWebSocketRoutes(router *mux.Router) {
	// WebSocket routes skip the JSON content-type validation; browsers cannot
	// set headers on WebSocket requests, so auth falls back to a token query
	// parameter inside BearerAuthMiddleware.
	wsRouter := router.PathPrefix("/api/ws").Subrouter()
	wsRouter.Use(LoggingMiddleware)
	if hm.config.SecretKey != "" {
		wsRouter.Use(BearerAuthMiddleware(hm.config.SecretKey))
	}

	consoleWSHandler := NewConsoleWSHandler(hm.service)
	consoleWSHandler.SetupConsoleWSRoutes(wsRouter)
}

// SetupICEConfigRoutes sets up ICE configuration routes
func (hm *HandlerManager) SetupICEConfigRoutes(router *mux.Router) {
	iceConfigHandler := NewICEConfigHandler(hm.config.STUNServers, hm.twilioTokens)
	iceConfigHandler.SetupICEConfigRoutes(router)
}

// SetupDiagnosticsRoutes sets up health and diagnostics routes
func (hm *HandlerManager) SetupDiagnosticsRoutes(router *mux.Router) {
	diagnosticsHandler := NewDiagnosticsHandler(hm.service, hm.repoManager, hm.config.InstanceID)
	diagnosticsHandler.SetupDiagnosticsRoutes(router)
}

// SetupSwaggerRoutes serves the generated OpenAPI spec
func (hm *HandlerManager) SetupSwaggerRoutes(router *mux.Router) {
	router.HandleFunc("/swagger/doc.json", serveSwaggerDoc).Methods("GET")
	logger.Base().Info("swagger spec route registered", zap.String("path", "/swagger/doc.json"))
}

// GetRepoManager returns the repository manager
func (hm *HandlerManager) GetRepoManager() repository.RepositoryManager {
	return hm.repoManager
}

// GetService returns the call service
func (hm *HandlerManager) GetService() *call.CallService {
	return hm.service
}

// Shutdown stops background services and releases external connections
func (hm *HandlerManager) Shutdown() {
	if hm.twilioTokens != nil {
		hm.twilioTokens.Stop()
	}
	hm.service.Shutdown()
	if hm.repoManager != nil {
		if err := hm.repoManager.Close(); err != nil {
			logger.Base().Warn("failed to close database connection", zap.Error(err))
		}
	}
}

// serveSwaggerDoc serves the swagger spec registered by the docs package
func serveSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		http.Error(w, "swagger spec unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

// handleCORS handles CORS preflight requests for API routes
func handleCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, HEAD, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusOK)
}
