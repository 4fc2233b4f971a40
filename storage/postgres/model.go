package postgres

import (
	"time"

	"gorm.io/datatypes"
)

// 合同状态，单次运行内只会 processing -> analyzed 或 processing -> failed
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusAnalyzed   = "analyzed"
	StatusFailed     = "failed"
)

const (
	RiskLow      = "Low"
	RiskMedium   = "Medium"
	RiskHigh     = "High"
	RiskCritical = "Critical"
)

const (
	AlertExpiration     = "expiration"
	AlertNoticeDeadline = "notice_deadline"

	AlertPending  = "pending"
	AlertSent     = "sent"
	AlertResolved = "resolved"
)

// Contract 对应数据库里的 contracts 表
type Contract struct {
	// 不使用 gorm.Model 的自增 ID，而是上传时生成的 UUID
	ID               string         `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	FileName         string         `gorm:"column:file_name;type:varchar(255);not null" json:"file_name"`
	SourceKey        string         `gorm:"column:source_key;type:varchar(512)" json:"-"`
	Status           string         `gorm:"column:status;type:varchar(20);not null;default:uploaded;index" json:"status"`
	Summary          string         `gorm:"column:summary;type:text" json:"summary"`
	Snapshot         datatypes.JSON `gorm:"column:snapshot" json:"snapshot,omitempty"`
	StartDate        *time.Time     `gorm:"column:start_date;type:date" json:"start_date"`
	EndDate          *time.Time     `gorm:"column:end_date;type:date;index" json:"end_date"`
	RenewalTerms     *string        `gorm:"column:renewal_terms;type:text" json:"renewal_terms"`
	NoticePeriodDays *int           `gorm:"column:notice_period_days" json:"notice_period_days"`

	Clauses []Clause `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"clauses,omitempty"`
	Risks   []Risk   `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"risks,omitempty"`
	Alerts  []Alert  `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE" json:"alerts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 强制指定表名
func (Contract) TableName() string {
	return "contracts"
}

type Clause struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ContractID string    `gorm:"column:contract_id;type:varchar(36);index;not null" json:"contract_id"`
	Category   string    `gorm:"column:category;type:varchar(100)" json:"category"`
	Text       string    `gorm:"column:text;type:text" json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Clause) TableName() string {
	return "clauses"
}

// Risk ClauseID 预留，当前映射不关联具体条款行
type Risk struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ContractID     string    `gorm:"column:contract_id;type:varchar(36);index;not null" json:"contract_id"`
	ClauseID       *uint     `gorm:"column:clause_id" json:"clause_id"`
	Category       string    `gorm:"column:category;type:varchar(100)" json:"category"`
	Level          string    `gorm:"column:level;type:varchar(20);index" json:"level"`
	Description    string    `gorm:"column:description;type:text" json:"description"`
	Recommendation string    `gorm:"column:recommendation;type:text" json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Risk) TableName() string {
	return "risks"
}

type Alert struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ContractID string    `gorm:"column:contract_id;type:varchar(36);index;not null" json:"contract_id"`
	Type       string    `gorm:"column:type;type:varchar(30)" json:"type"`
	DueDate    time.Time `gorm:"column:due_date;type:date;index" json:"due_date"`
	Status     string    `gorm:"column:status;type:varchar(20);default:pending;index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// Analysis 一次成功运行要落库的全部内容，由 mapper 生成
type Analysis struct {
	Summary          string
	Snapshot         datatypes.JSON
	StartDate        *time.Time
	EndDate          *time.Time
	RenewalTerms     *string
	NoticePeriodDays *int
	Clauses          []Clause
	Risks            []Risk
	Alerts           []Alert
}
