package postgres

import (
	"context"
	"errors"
	"time"

	"contract-intel/types"

	"gorm.io/gorm"
)

// ContractRepo 封装对合同及其条款、风险、提醒的所有操作
type ContractRepo struct {
	db *gorm.DB
}

// NewContractRepo 构造函数
func NewContractRepo(db *gorm.DB) *ContractRepo {
	return &ContractRepo{db: db}
}

// Create 创建新合同记录
func (r *ContractRepo) Create(ctx context.Context, contract *Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// Get 查询合同详情，带出条款、风险和提醒
func (r *ContractRepo) Get(ctx context.Context, id string) (*Contract, error) {
	var contract Contract
	err := r.db.WithContext(ctx).
		Preload("Clauses", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Risks", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Alerts", func(db *gorm.DB) *gorm.DB { return db.Order("due_date") }).
		Where("id = ?", id).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// List 分页列出合同，不带子表
func (r *ContractRepo) List(ctx context.Context, skip, limit int) ([]Contract, error) {
	var contracts []Contract
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&contracts).Error
	return contracts, err
}

// Delete 级联删除合同的条款、风险、提醒。不依赖数据库外键。
func (r *ContractRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&Clause{}, &Risk{}, &Alert{}} {
			if err := tx.Where("contract_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&Contract{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *ContractRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res := r.db.WithContext(ctx).Model(&Contract{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveAnalysis 在一个事务里写入分析结果：
// 更新合同字段并标记 analyzed，删除旧条款和风险（replaceAlerts 时连同提醒），再插入新集合
func (r *ContractRepo) SaveAnalysis(ctx context.Context, id string, a *Analysis, replaceAlerts bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Contract{}).Where("id = ?", id).Updates(map[string]interface{}{
			"summary":            a.Summary,
			"snapshot":           a.Snapshot,
			"status":             StatusAnalyzed,
			"start_date":         a.StartDate,
			"end_date":           a.EndDate,
			"renewal_terms":      a.RenewalTerms,
			"notice_period_days": a.NoticePeriodDays,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("contract_id = ?", id).Delete(&Clause{}).Error; err != nil {
			return err
		}
		if err := tx.Where("contract_id = ?", id).Delete(&Risk{}).Error; err != nil {
			return err
		}
		if replaceAlerts {
			if err := tx.Where("contract_id = ?", id).Delete(&Alert{}).Error; err != nil {
				return err
			}
		}

		for i := range a.Clauses {
			a.Clauses[i].ContractID = id
		}
		for i := range a.Risks {
			a.Risks[i].ContractID = id
		}
		for i := range a.Alerts {
			a.Alerts[i].ContractID = id
		}
		if len(a.Clauses) > 0 {
			if err := tx.Create(&a.Clauses).Error; err != nil {
				return err
			}
		}
		if len(a.Risks) > 0 {
			if err := tx.Create(&a.Risks).Error; err != nil {
				return err
			}
		}
		if len(a.Alerts) > 0 {
			if err := tx.Create(&a.Alerts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats 简单聚合：合同总数、已分析数、高风险数、30 天内到期数
func (r *ContractRepo) Stats(ctx context.Context, now time.Time) (*types.Stats, error) {
	var s types.Stats
	db := r.db.WithContext(ctx)
	if err := db.Model(&Contract{}).Count(&s.TotalContracts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Contract{}).Where("status = ?", StatusAnalyzed).Count(&s.AnalyzedContracts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Risk{}).Where("level IN ?", []string{RiskHigh, RiskCritical}).Count(&s.HighRisks).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Contract{}).
		Where("end_date IS NOT NULL AND end_date >= ? AND end_date <= ?", now, now.AddDate(0, 0, 30)).
		Count(&s.ExpiringSoon).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkDueAlerts 定时任务：到期且仍为 pending 的提醒标记为 sent，返回被标记的提醒
func (r *ContractRepo) MarkDueAlerts(ctx context.Context, now time.Time) ([]Alert, error) {
	var due []Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND due_date <= ?", AlertPending, now).Find(&due).Error; err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]uint, len(due))
		for i, a := range due {
			ids[i] = a.ID
		}
		return tx.Model(&Alert{}).Where("id IN ?", ids).Update("status", AlertSent).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range due {
		due[i].Status = AlertSent
	}
	return due, nil
}

func (r *ContractRepo) UpdateAlertStatus(ctx context.Context, id uint, status string) (*Alert, error) {
	var alert Alert
	if err := r.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&alert).Update("status", status).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// IsNotFound 屏蔽 gorm 细节
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
