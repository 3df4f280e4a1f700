package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/propestai/voice-agent-service/internal/cache"
	"github.com/propestai/voice-agent-service/internal/config"
	"github.com/propestai/voice-agent-service/internal/repository"
	"github.com/propestai/voice-agent-service/internal/retell"
	"github.com/propestai/voice-agent-service/internal/services/agent"
	"github.com/propestai/voice-agent-service/internal/services/call"
	"github.com/propestai/voice-agent-service/internal/services/knowledgebase"
	"github.com/propestai/voice-agent-service/pkg/logger"
	pkgredis "github.com/propestai/voice-agent-service/pkg/redis"
	"go.uber.org/zap"
)

// HandlerManager wires the database, cache, Retell client and services and
// owns all HTTP handlers.
type HandlerManager struct {
	config      *config.Config
	repoManager repository.RepositoryManager
	redisSvc    *pkgredis.RedisService

	callHandler     *CallHandler
	kbHandler       *KnowledgeBaseHandler
	agentHandler    *AgentHandler
	campaignHandler *CampaignHandler
}

// NewHandlerManager creates and initializes all handlers and services
func NewHandlerManager(cfg *config.Config) (*HandlerManager, error) {
	dbConfig := repository.LoadDatabaseConfigFromEnv()
	db, err := repository.NewDatabaseConnection(dbConfig)
	if err != nil {
		logger.Base().Error("failed to connect to database", zap.Error(err))
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Base().Error("failed to run migrations", zap.Error(err))
		return nil, err
	}
	repoManager := repository.NewGormRepositoryManager(db)

	// Redis backs the agent cache on the webhook hot path. The service runs
	// without it.
	var redisIface pkgredis.RedisServiceInterface
	redisSvc, err := pkgredis.NewRedisService(&pkgredis.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Base().Warn("redis unavailable, agent cache disabled", zap.Error(err))
	} else {
		redisIface = redisSvc
	}

	retellClient := retell.NewClient(cfg.RetellBaseURL, cfg.RetellAPIKey, cfg.RetellTimeout, cfg.RetellRatePerSec)

	agentCache := cache.NewAgentCache(redisIface, repoManager.Agent(), cfg.AgentCacheTTL)

	webhookService := call.NewWebhookService(repoManager.Call(), agentCache)
	callService := call.NewService(retellClient, repoManager.Call(), repoManager.Agent())
	kbService := knowledgebase.NewService(retellClient, repoManager.KnowledgeBase())
	kbSyncService := knowledgebase.NewSyncService(retellClient, repoManager.KnowledgeBase())
	agentService := agent.NewService(retellClient, repoManager.Agent())

	return &HandlerManager{
		config:          cfg,
		repoManager:     repoManager,
		redisSvc:        redisSvc,
		callHandler:     NewCallHandler(webhookService, callService, repoManager.Call()),
		kbHandler:       NewKnowledgeBaseHandler(kbService, kbSyncService),
		agentHandler:    NewAgentHandler(agentService, agentCache),
		campaignHandler: NewCampaignHandler(repoManager.Campaign(), callService),
	}, nil
}

// SetupAllRoutes registers all routes and middleware on the router.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	if hm.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(LoggingMiddleware)

	router.HandleFunc("/health", hm.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(ValidationMiddleware)

	// Webhook ingestion. Retell authenticates deliveries upstream of this
	// service, so the route carries no user scope.
	api.HandleFunc("/calls/retell/webhook", hm.callHandler.HandleRetellWebhook).Methods("POST")

	api.HandleFunc("/calls/initialize", hm.callHandler.InitializeCall).Methods("POST")
	api.HandleFunc("/calls", hm.callHandler.ListCalls).Methods("GET")
	api.HandleFunc("/calls/{id}", hm.callHandler.GetCall).Methods("GET")
	api.HandleFunc("/calls/{id}/refresh", hm.callHandler.RefreshCall).Methods("POST")

	api.HandleFunc("/knowledge-bases", hm.kbHandler.CreateKnowledgeBase).Methods("POST")
	api.HandleFunc("/knowledge-bases/{id}", hm.kbHandler.GetKnowledgeBase).Methods("GET")
	api.HandleFunc("/knowledge-bases/{id}", hm.kbHandler.DeleteKnowledgeBase).Methods("DELETE")
	api.HandleFunc("/knowledge-bases/sync-user", hm.kbHandler.SyncUserKnowledgeBases).Methods("POST")

	api.HandleFunc("/agents", hm.agentHandler.RegisterAgent).Methods("POST")
	api.HandleFunc("/agents/{id}/workflow", hm.agentHandler.PublishWorkflow).Methods("POST")
	api.HandleFunc("/agents/{id}", hm.agentHandler.DeleteAgent).Methods("DELETE")

	api.HandleFunc("/campaigns", hm.campaignHandler.CreateCampaign).Methods("POST")
	api.HandleFunc("/campaigns", hm.campaignHandler.ListCampaigns).Methods("GET")
	api.HandleFunc("/campaigns/{id}", hm.campaignHandler.UpdateCampaign).Methods("PUT")
	api.HandleFunc("/campaigns/{id}", hm.campaignHandler.DeleteCampaign).Methods("DELETE")
	api.HandleFunc("/campaigns/{id}/contacts", hm.campaignHandler.ImportContacts).Methods("POST")
	api.HandleFunc("/campaigns/{id}/contacts/{contact_id}/call", hm.campaignHandler.DialContact).Methods("POST")

	// Cross-tenant maintenance endpoints
	operator := api.PathPrefix("/operator").Subrouter()
	operator.Use(OperatorAuthMiddleware(hm.config.OperatorJWTSecret))
	operator.HandleFunc("/knowledge-bases/sync-all", hm.kbHandler.SyncAllKnowledgeBases).Methods("POST")
	operator.HandleFunc("/calls/backfill", hm.callHandler.BackfillDerivedFields).Methods("POST")
}

// HealthCheck reports service and database health.
func (hm *HandlerManager) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := hm.repoManager.Ping(r.Context()); err != nil {
		logger.Base().Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, APIResponse{Status: "error", Message: "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Status: "ok"})
}

// Shutdown releases database and Redis connections.
func (hm *HandlerManager) Shutdown() {
	if err := hm.repoManager.Close(); err != nil {
		logger.Base().Warn("failed to close database", zap.Error(err))
	}
	if hm.redisSvc != nil {
		if err := hm.redisSvc.Close(); err != nil {
			logger.Base().Warn("failed to close redis", zap.Error(err))
		}
	}
}
