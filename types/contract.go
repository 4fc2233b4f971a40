package types

// Clause 条款抽取阶段的产物
type Clause struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Summary  string `json:"summary"`
}

// RiskAssessment 风险分析阶段的产物，按来源条款类别打标
type RiskAssessment struct {
	ClauseCategory string `json:"clause_category"`
	RiskLevel      string `json:"risk_level"`
	Reasoning      string `json:"reasoning"`
	Recommendation string `json:"recommendation"`
}

// Lifecycle 生命周期阶段的原始映射，字段由 mapper 做宽松转换
// start_date / end_date / renewal_terms / notice_period_days
type Lifecycle map[string]any

// PipelineState 一次流水线运行的累积状态。
// nil 表示该阶段未运行或整体失败，不会出现半填充的值。
type PipelineState struct {
	ContractID       string           `json:"contract_id"`
	ExtractedClauses []Clause         `json:"extracted_clauses"`
	Risks            []RiskAssessment `json:"risks"`
	Lifecycle        Lifecycle        `json:"lifecycle"`
	Summary          *string          `json:"summary"`
}

// SummaryText 未生成摘要时返回空串
func (s *PipelineState) SummaryText() string {
	if s == nil || s.Summary == nil {
		return ""
	}
	return *s.Summary
}

// ContractClauses 对比时使用的持久化条款视图
type ContractClauses struct {
	FileName string
	Clauses  []Clause
}
