package jobs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Expirer zeroes point lots that expired by asOf.
type Expirer interface {
	RunExpiryCheck(ctx context.Context, asOf time.Time) (int, error)
}

// ExpiryJob runs the point expiry check on a fixed interval.
type ExpiryJob struct {
	expirer  Expirer
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// ExpiryConfig holds configuration for the expiry job
type ExpiryConfig struct {
	Expirer  Expirer
	Interval time.Duration // How often to run (default: 1 hour)
	Timeout  time.Duration // Bound on a single run (default: 10 minutes)
	Now      func() time.Time
}

// NewExpiryJob creates a new expiry job
func NewExpiryJob(cfg ExpiryConfig) *ExpiryJob {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ExpiryJob{
		expirer:  cfg.Expirer,
		interval: interval,
		timeout:  timeout,
		now:      now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one check immediately, then one per interval.
func (j *ExpiryJob) Start() {
	j.wg.Add(1)
	go j.run()
	slog.Info("Expiry job started", "interval", j.interval)
}

// Stop waits for an in-flight check to finish.
func (j *ExpiryJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	slog.Info("Expiry job stopped")
}

func (j *ExpiryJob) run() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.scan()
	for {
		select {
		case <-ticker.C:
			j.scan()
		case <-j.stopCh:
			return
		}
	}
}

func (j *ExpiryJob) scan() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	asOf := j.now()
	expired, err := j.expirer.RunExpiryCheck(ctx, asOf)
	if err != nil {
		slog.Error("Scheduled expiry check incomplete", "error", err, "asOf", asOf, "expired", expired)
		return
	}
	if expired > 0 {
		slog.Info("Scheduled expiry check zeroed lots", "asOf", asOf, "expired", expired)
	}
}
