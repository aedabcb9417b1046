package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studio/internal/api"
	"studio/internal/config"
	"studio/internal/crmapi"
	"studio/internal/db"
	"studio/internal/manager"
	"studio/internal/metrics"
	"studio/internal/migrate"
	"studio/internal/settings"
	"studio/internal/slots"
)

func main() {
	importPath := flag.String("import-availability", "", "import a legacy availability export (JSON) and exit")
	flag.Parse()

	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STUDIO_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		logger = logger.Level(level)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid studio timezone")
	}

	database, err := db.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *importPath != "" {
		stats, err := migrate.ImportFile(ctx, *importPath, database, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *importPath).Msg("legacy import failed")
		}
		logger.Info().Int("artists", stats.Artists).Int("schedules", stats.Schedules).
			Int("overrides", stats.Overrides).Int("skipped", stats.Skipped).Msg("legacy import finished")
		return
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var crmClient manager.CRMClient
	var crmCheck crmHealth
	if cfg.GHL.Enabled {
		crm := crmapi.NewClient(cfg.GHL.BaseURL, cfg.GHL.APIKey, cfg.GHL.APIVersion, cfg.GHL.LocationID)
		if rdb != nil && cfg.GHLCacheTTL() > 0 {
			crm.UseRedisCache(rdb, cfg.GHLCacheTTL())
		}
		crmClient, crmCheck = crm, crm
	}

	// Initial load + hot reload of artists configuration
	if err := config.WatchArtists(ctx, cfg.Studio.ArtistsConfigPath, 30*time.Second, logger, func(updated *config.ArtistsConfig) {
		if err := database.SyncArtistsFromConfig(ctx, updated); err != nil {
			logger.Error().Err(err).Msg("failed to apply artists config")
			return
		}
		logger.Info().Str("config", updated.String()).Msg("artists config applied")
	}); err != nil {
		logger.Error().Err(err).Msg("artists config watch failed")
	}

	var settingsCache settings.Cache
	if rdb != nil {
		settingsCache = settings.NewRedisCache(rdb, cfg.SettingsCacheTTL(), logger)
	}

	computer := slots.NewComputer(database, database, database, loc, logger)
	bookings := manager.NewService(database, crmClient, logger)
	settingsSvc := settings.NewService(database, settingsCache, logger)

	server := api.NewHTTPServer(api.Options{
		Port:           cfg.HTTP.Port,
		APIKey:         cfg.HTTP.APIKey,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	}, computer, database, bookings, settingsSvc, logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, crmCheck, logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	if cfg.Backup.Enabled {
		go startBackups(ctx, database, cfg, logger)
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("api shutdown error")
		}
	}()

	logger.Info().Str("timezone", loc.String()).Msg("studio availability service started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
	logger.Info().Msg("studio availability service stopped")
}

func startBackups(ctx context.Context, database *db.DB, cfg *config.Config, logger zerolog.Logger) {
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}
	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour
	logger.Info().Str("dir", cfg.Backup.Path).Dur("interval", interval).Msg("database backups enabled")
	database.RunBackups(ctx, cfg.Backup.Path, interval, retention)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type crmHealth interface {
	HealthCheck(ctx context.Context) error
}

func startHealthServer(ctx context.Context, port int, database pinger, rdb *redis.Client, crm crmHealth, logger zerolog.Logger) {
	mux := healthMux(ctx, database, rdb, crm, logger)
	serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}, "health", logger)
}

// healthMux serves liveness and readiness. Readiness covers sqlite and redis only; the CRM is
// reported on its own endpoint since bookings keep working while it is down.
func healthMux(ctx context.Context, database pinger, rdb *redis.Client, crm crmHealth, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/healthz/crm", func(w http.ResponseWriter, _ *http.Request) {
		if crm == nil {
			_, _ = w.Write([]byte("disabled"))
			return
		}
		ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := crm.HealthCheck(ctxPing); err != nil {
			logger.Warn().Err(err).Msg("crm health check failed")
			http.Error(w, "crm unreachable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func startMetricsServer(ctx context.Context, port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}, "metrics", logger)
}

func serve(ctx context.Context, srv *http.Server, name string, logger zerolog.Logger) {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
