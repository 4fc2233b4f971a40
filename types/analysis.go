package types

const (
	ConfidenceLow  = "low"
	ConfidenceZero = "zero"

	NoRelevantInfoAnswer = "I could not find any relevant information in your contracts to answer your question."
	NotSpecified         = "Not specified in the contract"
	NoClausesExtracted   = "No detailed clauses extracted."
)

type Citation struct {
	ClauseText  string `json:"clause_text"`
	ClauseType  string `json:"clause_type"`
	Explanation string `json:"explanation"`
}

// QAResponse 问答结果
type QAResponse struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence string     `json:"confidence"`
}

type KeyDifference struct {
	Category       string `json:"category"`
	ContractAPoint string `json:"contract_a_point"`
	ContractBPoint string `json:"contract_b_point"`
	Assessment     string `json:"assessment"`
}

// CompareResponse 两份合同对比结果
type CompareResponse struct {
	OverviewDiff   string          `json:"overview_diff"`
	KeyDifferences []KeyDifference `json:"key_differences"`
	Recommendation string          `json:"recommendation"`
}

// RewriteResponse 条款改写结果
type RewriteResponse struct {
	RewrittenText string `json:"rewritten_text"`
	Explanation   string `json:"explanation"`
}
