package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contract-intel/logic/extract"
	"contract-intel/pkg/logger"
	"contract-intel/storage/postgres"
	"contract-intel/types"

	"gorm.io/datatypes"
)

const markFailedTimeout = 5 * time.Second

// Store 落库依赖，ContractRepo 满足
type Store interface {
	SaveAnalysis(ctx context.Context, id string, a *postgres.Analysis, replaceAlerts bool) error
	UpdateStatus(ctx context.Context, id, status string) error
}

// Mapper 把流水线最终状态转换为持久化记录和日历提醒
type Mapper struct {
	store         Store
	replaceAlerts bool
	log           *slog.Logger
}

func New(store Store, replaceAlerts bool, log *slog.Logger) *Mapper {
	if log == nil {
		log = slog.Default()
	}
	return &Mapper{store: store, replaceAlerts: replaceAlerts, log: log}
}

// Apply 一个事务内完成写入；任何失败都把合同标记为 failed
func (m *Mapper) Apply(ctx context.Context, contractID string, st *types.PipelineState) error {
	log := logger.FromContext(logger.WithContractID(ctx, contractID), m.log)

	a, err := Build(st)
	if err == nil {
		err = m.store.SaveAnalysis(ctx, contractID, a, m.replaceAlerts)
	}
	if err != nil {
		log.Error("mapper.apply.failed", "error", err)
		// 运行 ctx 可能已超时，状态更新用独立 ctx
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
		defer cancel()
		if serr := m.store.UpdateStatus(sctx, contractID, postgres.StatusFailed); serr != nil {
			log.Error("mapper.mark_failed", "error", serr)
		}
		return fmt.Errorf("persist analysis: %w", err)
	}
	log.Info("mapper.apply.done", "clauses", len(a.Clauses), "risks", len(a.Risks), "alerts", len(a.Alerts))
	return nil
}

// Build 纯函数，不触碰数据库
func Build(st *types.PipelineState) (*postgres.Analysis, error) {
	if st == nil {
		return nil, fmt.Errorf("nil pipeline state")
	}
	snapshot, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	a := &postgres.Analysis{
		Summary:  st.SummaryText(),
		Snapshot: datatypes.JSON(snapshot),
		Clauses:  make([]postgres.Clause, 0, len(st.ExtractedClauses)),
		Risks:    make([]postgres.Risk, 0, len(st.Risks)),
	}
	for _, c := range st.ExtractedClauses {
		a.Clauses = append(a.Clauses, postgres.Clause{Category: c.Category, Text: c.Text})
	}
	for _, r := range st.Risks {
		a.Risks = append(a.Risks, postgres.Risk{
			Category:       r.ClauseCategory,
			Level:          RiskLevel(r.RiskLevel),
			Description:    r.Reasoning,
			Recommendation: r.Recommendation,
		})
	}

	lc := st.Lifecycle
	if lc != nil {
		a.StartDate = extract.Date(lc["start_date"])
		a.EndDate = extract.Date(lc["end_date"])
		a.RenewalTerms = extract.OptionalString(lc, "renewal_terms")
		a.NoticePeriodDays = extract.NoticeDays(lc["notice_period_days"])
	}
	a.Alerts = Alerts(a)
	return a, nil
}

// Alerts 有到期日才生成提醒；通知期已知时再加一条截止提醒
func Alerts(a *postgres.Analysis) []postgres.Alert {
	if a.EndDate == nil {
		return nil
	}
	alerts := []postgres.Alert{{
		Type:    postgres.AlertExpiration,
		DueDate: *a.EndDate,
		Status:  postgres.AlertPending,
	}}
	if a.NoticePeriodDays != nil && *a.NoticePeriodDays > 0 {
		alerts = append(alerts, postgres.Alert{
			Type:    postgres.AlertNoticeDeadline,
			DueDate: a.EndDate.AddDate(0, 0, -*a.NoticePeriodDays),
			Status:  postgres.AlertPending,
		})
	}
	return alerts
}

// RiskLevel 大小写不敏感，无法识别时为 Low
func RiskLevel(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return postgres.RiskCritical
	case "high":
		return postgres.RiskHigh
	case "medium":
		return postgres.RiskMedium
	default:
		return postgres.RiskLow
	}
}
