package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NasaVasa/pairalert/internal/config"
	"github.com/NasaVasa/pairalert/internal/delivery/telegram"
	"github.com/NasaVasa/pairalert/internal/domain"
	"github.com/NasaVasa/pairalert/internal/infra/db"
	"github.com/NasaVasa/pairalert/internal/infra/dexscreener"
	"github.com/NasaVasa/pairalert/internal/infra/log"
	"github.com/NasaVasa/pairalert/internal/infra/redisstore"
	"github.com/NasaVasa/pairalert/internal/usecase"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	bot       *telegram.Bot
	alerting  *usecase.AlertingManager
	purger    *db.AlertStore
	cfg       config.Config
	metrics   *http.Server
	logger    *zap.Logger
	cleanupFn func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger("pairalert", cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	market := dexscreener.NewClient(cfg.DexScreenerBaseURL, cfg.DexScreenerTimeout, cfg.DexScreenerRPS, logger)
	selector := usecase.NewSelector(market, cfg.AlertReplyTimeout, logger)
	monitor := usecase.NewMonitor(store, market, cfg.AlertPollInterval, logger)
	a.alerting = usecase.NewAlertingManager(monitor, logger)
	alertUC := usecase.NewAlertUsecase(store, selector, monitor, a.alerting, cfg.AlertMaxTimeout, logger)

	api, err := telegram.NewAPI(cfg.TelegramBotToken)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("telegram: %w", err)
	}
	handlers := telegram.NewHandlers(alertUC, telegram.NewRouter(logger), logger)
	a.bot = telegram.NewBot(api, handlers, cfg.TelegramPollTimeout, logger)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (domain.AlertStore, error) {
	switch a.cfg.StoreBackend {
	case config.StorePostgres:
		dbConn, err := db.Open(a.cfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.cleanupFn = func() error {
			sqlDB, err := dbConn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		a.purger = db.NewAlertStore(dbConn)
		return a.purger, nil
	default:
		client, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.cleanupFn = client.Close
		return redisstore.NewAlertStore(client), nil
	}
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("pairalert service starting", zap.String("store", a.cfg.StoreBackend))

	if a.purger != nil {
		go a.purger.RunPurger(ctx, a.cfg.DBPurgeInterval, func(err error) {
			a.logger.Warn("failed to purge expired alerts", zap.Error(err))
		})
	}
	if a.metrics != nil {
		go func() {
			a.logger.Info("metrics server listening", zap.String("addr", a.metrics.Addr))
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	a.logger.Info("pairalert service started")
	return a.bot.Start(ctx)
}

func (a *App) Shutdown() {
	a.logger.Info("pairalert service shutting down", zap.Int("active_monitors", a.alerting.Active()))
	a.alerting.StopAll()
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to stop metrics server", zap.Error(err))
		}
		cancel()
	}
	a.cleanup()
	_ = a.logger.Sync()
}

func (a *App) cleanup() {
	if a.cleanupFn == nil {
		return
	}
	if err := a.cleanupFn(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	a.cleanupFn = nil
}
