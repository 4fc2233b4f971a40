package postgres

import (
	"context"
	"testing"
	"time"

	"contract-intel/vars"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestRepo(t *testing.T) *ContractRepo {
	t.Helper()
	db, err := InitDB(vars.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewContractRepo(db)
}

func day(s string) *time.Time {
	d, _ := time.Parse(vars.DateLayout, s)
	return &d
}

func seedContract(t *testing.T, r *ContractRepo, id string) {
	t.Helper()
	require.NoError(t, r.Create(context.Background(), &Contract{ID: id, FileName: id + ".pdf", Status: StatusProcessing}))
}

func sampleAnalysis() *Analysis {
	notice := 30
	renewal := "Auto-renews for 1 year"
	return &Analysis{
		Summary:          "summary",
		Snapshot:         datatypes.JSON(`{"contract_id":"c1"}`),
		StartDate:        day("2024-01-01"),
		EndDate:          day("2026-01-01"),
		RenewalTerms:     &renewal,
		NoticePeriodDays: &notice,
		Clauses:          []Clause{{Category: "Termination", Text: "t"}, {Category: "Liability", Text: "l"}},
		Risks:            []Risk{{Category: "Liability", Level: RiskHigh, Description: "uncapped"}},
		Alerts: []Alert{
			{Type: AlertExpiration, DueDate: *day("2026-01-01"), Status: AlertPending},
			{Type: AlertNoticeDeadline, DueDate: *day("2025-12-02"), Status: AlertPending},
		},
	}
}

func TestSaveAnalysisAndGet(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedContract(t, r, "c1")

	require.NoError(t, r.SaveAnalysis(ctx, "c1", sampleAnalysis(), true))

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzed, c.Status)
	assert.Equal(t, "summary", c.Summary)
	require.NotNil(t, c.EndDate)
	assert.Equal(t, "2026-01-01", c.EndDate.Format(vars.DateLayout))
	require.NotNil(t, c.NoticePeriodDays)
	assert.Equal(t, 30, *c.NoticePeriodDays)
	assert.Len(t, c.Clauses, 2)
	assert.Len(t, c.Risks, 1)
	assert.Nil(t, c.Risks[0].ClauseID)
	require.Len(t, c.Alerts, 2)
	assert.Equal(t, AlertNoticeDeadline, c.Alerts[0].Type)
}

func TestSaveAnalysisReplaces(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedContract(t, r, "c1")

	require.NoError(t, r.SaveAnalysis(ctx, "c1", sampleAnalysis(), true))

	second := sampleAnalysis()
	second.Clauses = []Clause{{Category: "Renewal", Text: "r"}}
	second.Risks = nil
	second.EndDate = nil
	second.Alerts = nil
	require.NoError(t, r.SaveAnalysis(ctx, "c1", second, true))

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, c.Clauses, 1)
	assert.Equal(t, "Renewal", c.Clauses[0].Category)
	assert.Empty(t, c.Risks)
	assert.Empty(t, c.Alerts)
	assert.Nil(t, c.EndDate)
}

func TestSaveAnalysisAppendsAlertsWhenNotReplacing(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedContract(t, r, "c1")

	require.NoError(t, r.SaveAnalysis(ctx, "c1", sampleAnalysis(), false))
	require.NoError(t, r.SaveAnalysis(ctx, "c1", sampleAnalysis(), false))

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, c.Clauses, 2)
	assert.Len(t, c.Alerts, 4)
}

func TestSaveAnalysisMissingContract(t *testing.T) {
	err := newTestRepo(t).SaveAnalysis(context.Background(), "nope", sampleAnalysis(), true)
	assert.True(t, IsNotFound(err))
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedContract(t, r, "c1")
	require.NoError(t, r.SaveAnalysis(ctx, "c1", sampleAnalysis(), true))

	require.NoError(t, r.Delete(ctx, "c1"))

	_, err := r.Get(ctx, "c1")
	assert.True(t, IsNotFound(err))
	var clauses int64
	require.NoError(t, r.db.Model(&Clause{}).Where("contract_id = ?", "c1").Count(&clauses).Error)
	assert.Zero(t, clauses)

	var alerts int64
	require.NoError(t, r.db.Model(&Alert{}).Count(&alerts).Error)
	assert.Zero(t, alerts)

	assert.True(t, IsNotFound(r.Delete(ctx, "c1")))
}

func TestListAndStatus(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedContract(t, r, "c1")
	seedContract(t, r, "c2")

	all, err := r.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	page, err := r.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	require.NoError(t, r.UpdateStatus(ctx, "c2", StatusFailed))
	c, err := r.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, c.Status)

	assert.True(t, IsNotFound(r.UpdateStatus(ctx, "missing", StatusFailed)))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedContract(t, r, "c1")
	seedContract(t, r, "c2")

	a := sampleAnalysis()
	a.EndDate = day("2025-06-20")
	require.NoError(t, r.SaveAnalysis(ctx, "c1", a, true))

	s, err := r.Stats(ctx, *day("2025-06-01"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.TotalContracts)
	assert.EqualValues(t, 1, s.AnalyzedContracts)
	assert.EqualValues(t, 1, s.HighRisks)
	assert.EqualValues(t, 1, s.ExpiringSoon)

	s, err = r.Stats(ctx, *day("2025-01-01"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.ExpiringSoon)
}

func TestMarkDueAlerts(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	seedContract(t, r, "c1")
	require.NoError(t, r.SaveAnalysis(ctx, "c1", sampleAnalysis(), true))

	due, err := r.MarkDueAlerts(ctx, *day("2025-12-15"))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, AlertNoticeDeadline, due[0].Type)
	assert.Equal(t, AlertSent, due[0].Status)

	// 已标记的不会重复返回
	due, err = r.MarkDueAlerts(ctx, *day("2025-12-15"))
	require.NoError(t, err)
	assert.Empty(t, due)

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	alert, err := r.UpdateAlertStatus(ctx, c.Alerts[1].ID, AlertResolved)
	require.NoError(t, err)
	assert.Equal(t, AlertResolved, alert.Status)

	_, err = r.UpdateAlertStatus(ctx, 9999, AlertResolved)
	assert.True(t, IsNotFound(err))
}
