package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArowuTest/loyalty-ledger/api/routes"
	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/ArowuTest/loyalty-ledger/internal/handlers"
	"github.com/ArowuTest/loyalty-ledger/internal/jobs"
	"github.com/ArowuTest/loyalty-ledger/internal/metrics"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories"
	"github.com/ArowuTest/loyalty-ledger/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/loyalty-ledger/internal/repositories/mongodb"
	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/ArowuTest/loyalty-ledger/pkg/mongodb"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

// stores bundles the repositories of one storage driver.
type stores struct {
	ledger      repositories.PointLedgerRepository
	commissions repositories.CommissionRepository
	rewards     repositories.RewardRepository
	rules       repositories.LoyaltyRuleRepository
	members     repositories.MemberRepository
	orders      repositories.OrderRepository
	ping        func(ctx context.Context) error
	close       func(ctx context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)
	if cfg.JWT.Secret == config.DevJWTSecret {
		slog.Warn("JWT secret is the development default; set JWT_SECRET in production")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open ledger store", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			slog.Error("Error closing ledger store", "error", err)
		}
	}()

	rates, err := cfg.Loyalty.CommissionRates()
	if err != nil {
		slog.Error("Invalid commission rates", "error", err)
		os.Exit(1)
	}

	m := metrics.Ledger()
	clock := services.SystemClock
	locks := services.NewUserLocks(cfg.Loyalty.LockStripes)

	ruleService := services.NewRuleService(st.rules, cfg.Loyalty.DefaultRules, clock, cfg.Loyalty.RuleRefreshInterval)
	rules, err := ruleService.Reload(ctx)
	if err != nil {
		slog.Error("Failed to load loyalty rules", "error", err)
		os.Exit(1)
	}
	slog.Info("Loyalty rules loaded", "version", rules.Version, "earnRatePer100k", rules.EarnRatePer100k,
		"pointExpiryMonths", rules.PointExpiryMonths, "doublePointsActive", rules.DoublePointsActive)

	pointService := services.NewPointService(st.ledger, ruleService, locks, clock, m)
	commissionService, err := services.NewCommissionService(st.commissions, st.members, rates, clock, m)
	if err != nil {
		slog.Error("Failed to create commission service", "error", err)
		os.Exit(1)
	}
	rewardService := services.NewRewardService(st.rewards, st.members, pointService, m)
	memberService := services.NewMemberService(st.members, clock)
	orderService := services.NewOrderService(st.orders, pointService, commissionService, services.NewMemberUplineResolver(st.members), m)

	deps := routes.Dependencies{
		LedgerHandler: handlers.NewLedgerHandler(pointService, commissionService),
		RewardHandler: handlers.NewRewardHandler(rewardService),
		EventHandler:  handlers.NewEventHandler(orderService, pointService, memberService),
		AdminHandler:  handlers.NewAdminHandler(ruleService, pointService, commissionService, clock),
		Ping:          st.ping,
	}
	if strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(cfg, deps)

	var expiryJob *jobs.ExpiryJob
	if cfg.Loyalty.ExpiryCheckInterval > 0 {
		expiryJob = jobs.NewExpiryJob(jobs.ExpiryConfig{
			Expirer:  pointService,
			Interval: cfg.Loyalty.ExpiryCheckInterval,
			Now:      clock.Now,
		})
		expiryJob.Start()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	slog.Info("Server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	if expiryJob != nil {
		expiryJob.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		slog.Warn("Using in-memory ledger store; balances are lost on restart")
		store := memory.NewStore()
		return &stores{
			ledger:      memory.NewPointLedgerRepository(store),
			commissions: memory.NewCommissionRepository(store),
			rewards:     memory.NewRewardRepository(store),
			rules:       memory.NewLoyaltyRuleRepository(store),
			members:     memory.NewMemberRepository(store),
			orders:      memory.NewOrderRepository(store),
			close:       func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB.Database)

	indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
	defer cancel()
	if err := mongorepo.EnsureIndexes(indexCtx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	slog.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	return &stores{
		ledger:      mongorepo.NewPointLedgerRepository(db),
		commissions: mongorepo.NewCommissionRepository(db),
		rewards:     mongorepo.NewRewardRepository(db),
		rules:       mongorepo.NewLoyaltyRuleRepository(db),
		members:     mongorepo.NewMemberRepository(db),
		orders:      mongorepo.NewOrderRepository(db),
		ping:        client.Ping,
		close:       client.Disconnect,
	}, nil
}
