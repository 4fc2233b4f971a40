package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contract-intel/storage/postgres"

	"github.com/robfig/cron/v3"
)

// AlertStore 定时任务依赖，ContractRepo 满足
type AlertStore interface {
	MarkDueAlerts(ctx context.Context, now time.Time) ([]postgres.Alert, error)
}

// SweepAlerts 到期的 pending 提醒标记为 sent
func SweepAlerts(ctx context.Context, store AlertStore, now time.Time, log *slog.Logger) (int, error) {
	due, err := store.MarkDueAlerts(ctx, now.UTC())
	if err != nil {
		return 0, err
	}
	for _, a := range due {
		log.Info("alert.due", "alert_id", a.ID, "contract_id", a.ContractID, "type", a.Type,
			"due_date", a.DueDate.Format("2006-01-02"))
	}
	return len(due), nil
}

// StartCronJob spec 为 6 段秒级表达式；返回的 cron 由调用方 Stop
func StartCronJob(store AlertStore, spec string, log *slog.Logger) (*cron.Cron, error) {
	if log == nil {
		log = slog.Default()
	}
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		n, err := SweepAlerts(context.Background(), store, time.Now(), log)
		if err != nil {
			log.Error("cron.alert_sweep.failed", "error", err)
			return
		}
		log.Info("cron.alert_sweep.done", "sent", n)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
