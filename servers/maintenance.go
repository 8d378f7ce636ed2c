package servers

import (
	"context"
	"time"

	"sitegen/interfaces"
)

// PruneUsageJob は保持期間を過ぎた利用履歴を削除するジョブを返します。
func PruneUsageJob(store interfaces.UsageStore, retention time.Duration, log interfaces.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		n, err := store.PruneUsageBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("pruned usage records", "deleted", n, "retention", retention)
		}
		return nil
	}
}

type sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// SweepWorkspacesJob は一定時間操作のないワークスペースを破棄するジョブを返します。
func SweepWorkspacesJob(reg sweeper, maxIdle time.Duration, log interfaces.Logger) func(context.Context) error {
	return func(context.Context) error {
		if n := reg.Sweep(maxIdle); n > 0 {
			log.Info("swept idle workspaces", "removed", n)
		}
		return nil
	}
}
