// Package retention prunes cached messages older than the configured
// window on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/config"
	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/store"
)

// ActiveFunc reports the currently selected conversation, or "". Pruning
// skips the active conversation so a reconciliation pass never races a
// bulk delete under its feet.
type ActiveFunc func() string

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config, st *store.Store, active ActiveFunc) (context.CancelFunc, error) {
	ret := cfg.Retention
	if !ret.Enabled {
		logger.Log.Info("retention_disabled")
		return func() {}, nil
	}

	// map empty cron to default daily @02:00
	cronExpr := ret.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Log.Error("retention_invalid_cron", zap.String("cron", ret.Cron))
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Log.Info("retention_enabled",
		zap.String("cron", cronExpr), zap.Int("days", ret.Days))
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, st, active, cronExpr, ret.Days)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, st *store.Store, active ActiveFunc, cronExpr string, days int) {
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Log.Error("retention_nexttick_failed",
				zap.String("cron", cronExpr), zap.Error(err))
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			if err := RunOnce(st, active, days); err != nil {
				logger.Log.Error("retention_run_error", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Log.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce prunes every known conversation except the active one. Exported
// so an operator trigger or test can force a run.
func RunOnce(st *store.Store, active ActiveFunc, days int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	cutoffTS := fmt.Sprintf("%d.000000", cutoff.Unix())

	chans, err := st.ListAllChannels()
	if err != nil {
		return fmt.Errorf("retention channel list: %w", err)
	}
	activeID := ""
	if active != nil {
		activeID = active()
	}
	total := 0
	for _, ch := range chans {
		if ch.ID == activeID {
			continue
		}
		n, err := st.DeleteMessagesBefore(ch.ID, cutoffTS)
		if err != nil {
			return fmt.Errorf("retention prune %s: %w", ch.ID, err)
		}
		total += n
	}
	logger.Log.Info("retention_run_complete",
		zap.Int("channels", len(chans)), zap.Int("deleted", total),
		zap.String("cutoff", cutoffTS))
	return nil
}
