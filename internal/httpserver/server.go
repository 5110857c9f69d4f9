package httpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/affiliate"
	"github.com/dealpicks/affiliate-engine/internal/config"
	"github.com/dealpicks/affiliate-engine/internal/database"
	"github.com/dealpicks/affiliate-engine/internal/geo"
	"github.com/dealpicks/affiliate-engine/internal/metrics"
	"github.com/dealpicks/affiliate-engine/internal/registry"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Geo        *geo.Resolver
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps HTTP handlers and the affiliate services.
type Server struct {
	registry  *registry.Registry
	configs   *affiliate.ConfigService
	tagger    *affiliate.Tagger
	syncer    *affiliate.Syncer
	bulk      *affiliate.BulkService
	analytics *affiliate.AnalyticsService
	status    *affiliate.StatusService
	products  storage.ProductRepo
	logger    *zap.Logger
	config    *config.Config
	metrics   *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered.
// With no database configured every repo falls back to its in-memory
// implementation, which keeps development and tests self-contained.
func NewServer(deps *Dependencies) (http.Handler, error) {
	tables := deps.Config.Affiliate.ProductTables

	var configRepo storage.ConfigRepo
	var productRepo storage.ProductRepo
	var analyticsRepo storage.AnalyticsRepo
	if deps.DB != nil {
		configRepo = storage.NewPostgresConfigRepo(deps.DB.Pool)
		productRepo = storage.NewPostgresProductRepo(deps.DB.Pool, tables)
		analyticsRepo = storage.NewPostgresAnalyticsRepo(deps.DB.Pool)
	} else {
		configRepo = storage.NewInMemoryConfigRepo()
		productRepo = storage.NewInMemoryProductRepo(tables)
		analyticsRepo = storage.NewInMemoryAnalyticsRepo()
	}

	var eventLog storage.EventLog
	if deps.ClickHouse != nil {
		eventLog = storage.NewClickHouseEventLog(deps.ClickHouse.Conn)
	}

	var redisClient *redis.Client
	if deps.Redis != nil {
		redisClient = deps.Redis.Client
	}

	reg := registry.New()
	configs := affiliate.NewConfigService(configRepo, reg, deps.Metrics, deps.Logger)
	if err := configs.Load(context.Background()); err != nil {
		return nil, err
	}

	tagger := affiliate.NewTagger(reg, configs, deps.Metrics, deps.Logger)
	syncer := affiliate.NewSyncer(productRepo, deps.Logger)
	bulk := affiliate.NewBulkService(tagger, syncer, productRepo, tables, deps.Metrics, deps.Logger)
	analytics := affiliate.NewAnalyticsService(analyticsRepo, eventLog, deps.Geo, redisClient, deps.Config.Redis.CacheTTL, deps.Metrics, deps.Logger)
	status := affiliate.NewStatusService(productRepo, tables, redisClient, deps.Config.Redis.CacheTTL, deps.Logger)

	s := &Server{
		registry:  reg,
		configs:   configs,
		tagger:    tagger,
		syncer:    syncer,
		bulk:      bulk,
		analytics: analytics,
		status:    status,
		products:  productRepo,
		logger:    deps.Logger,
		config:    deps.Config,
		metrics:   deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Affiliate system
	mux.HandleFunc("/affiliate/status", s.handleStatus)
	mux.HandleFunc("/affiliate/networks", s.handleNetworks)
	mux.HandleFunc("/affiliate/configure", s.handleConfigure)
	mux.HandleFunc("/affiliate/build-url", s.handleBuildURL)
	mux.HandleFunc("/affiliate/bulk-process", s.handleBulkProcess)
	mux.HandleFunc("/affiliate/products/", s.handleProductsByPage)
	mux.HandleFunc("/affiliate/validate", s.handleValidate)

	// Analytics
	mux.HandleFunc("/affiliate/analytics", s.handleAnalytics)
	mux.HandleFunc("/affiliate/track-click", s.handleTrackClick)
	mux.HandleFunc("/affiliate/track-conversion", s.handleTrackConversion)

	return mux, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Response helpers ----

func (s *Server) jsonResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
