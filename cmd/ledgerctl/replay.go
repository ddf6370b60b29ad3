package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/ArowuTest/loyalty-ledger/internal/metrics"
	mongorepo "github.com/ArowuTest/loyalty-ledger/internal/repositories/mongodb"
	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/ArowuTest/loyalty-ledger/pkg/mongodb"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

func newReplayCmd(load func() (*config.Config, error)) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "replay <orders.csv>",
		Short: "Feed completed orders from a CSV export through the ledger",
		Long:  "Replays are idempotent: orders already credited are reported as replayed and only missing commissions are written.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open CSV file: %w", err)
			}
			defer file.Close()

			orders, err := parseOrders(file)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d orders parsed, nothing written\n", len(orders))
				return nil
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			stats, err := replayToMongo(cmd.Context(), cfg, orders)
			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d replayed=%d commissions=%d failed=%d\n",
				stats.Processed, stats.Replayed, stats.Commissions, stats.Failed)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate the file without touching the ledger")
	return cmd
}

func replayToMongo(ctx context.Context, cfg *config.Config, orders []services.OrderCompleted) (replayStats, error) {
	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return replayStats{}, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return replayStats{}, err
	}

	rates, err := cfg.Loyalty.CommissionRates()
	if err != nil {
		return replayStats{}, err
	}
	m := metrics.Ledger()
	members := mongorepo.NewMemberRepository(db)
	clock := services.SystemClock
	ruleService := services.NewRuleService(mongorepo.NewLoyaltyRuleRepository(db), cfg.Loyalty.DefaultRules, clock, 0)
	if _, err := ruleService.Reload(ctx); err != nil {
		return replayStats{}, err
	}
	pointService := services.NewPointService(mongorepo.NewPointLedgerRepository(db), ruleService,
		services.NewUserLocks(cfg.Loyalty.LockStripes), clock, m)
	commissionService, err := services.NewCommissionService(mongorepo.NewCommissionRepository(db), members, rates, clock, m)
	if err != nil {
		return replayStats{}, err
	}
	orderService := services.NewOrderService(mongorepo.NewOrderRepository(db), pointService, commissionService, services.NewMemberUplineResolver(members), m)

	return replay(ctx, orderService, orders)
}

// replayStats counts what a replay did.
type replayStats struct {
	Processed   int
	Replayed    int
	Commissions int
	Failed      int
}

// replay applies orders in file order; per-buyer ordering matters for FIFO.
func replay(ctx context.Context, orders services.OrderService, events []services.OrderCompleted) (replayStats, error) {
	var stats replayStats
	var errs []error
	for _, evt := range events {
		summary, err := orders.ProcessOrderCompletion(ctx, evt)
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("order %s: %w", evt.OrderID, err))
			slog.Error("Order replay failed", "orderId", evt.OrderID, "error", err)
			continue
		}
		if summary.Replayed {
			stats.Replayed++
		} else {
			stats.Processed++
		}
		stats.Commissions += len(summary.Commissions)
	}
	slog.Info("Replay finished", "processed", stats.Processed, "replayed", stats.Replayed,
		"commissions", stats.Commissions, "failed", stats.Failed)
	return stats, errors.Join(errs...)
}
