package types

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type CompareRequest struct {
	ContractID1 string `json:"contract_id_1" binding:"required"`
	ContractID2 string `json:"contract_id_2" binding:"required"`
}

type RewriteRequest struct {
	ClauseText  string `json:"clause_text" binding:"required"`
	Instruction string `json:"instruction" binding:"required"`
}

type AlertStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending sent resolved"`
}

// Stats 简单聚合统计
type Stats struct {
	TotalContracts    int64 `json:"total_contracts"`
	AnalyzedContracts int64 `json:"analyzed_contracts"`
	HighRisks         int64 `json:"high_risks"`
	ExpiringSoon      int64 `json:"expiring_soon"`
}
