package analysis

import (
	"context"
	"fmt"
	"strings"

	"contract-intel/logic/extract"
	"contract-intel/pkg/logger"
	"contract-intel/types"
	"contract-intel/vars"
)

type compareSide struct {
	FileName string
	Clauses  string
}

// Compare 基于已落库的条款对比两份合同，不重新检索
func (s *Service) Compare(ctx context.Context, a, b types.ContractClauses) *types.CompareResponse {
	prompt, err := vars.Render(vars.ComparePrompt, map[string]compareSide{
		"A": {FileName: a.FileName, Clauses: clauseBlock(a.Clauses)},
		"B": {FileName: b.FileName, Clauses: clauseBlock(b.Clauses)},
	})
	if err != nil {
		return compareFallback(err)
	}

	obj, _, err := s.extractor.Extract(ctx, prompt, extract.CompareSchema)
	if err != nil {
		logger.FromContext(ctx, s.log).Warn("compare.failed", "error", err)
		return compareFallback(err)
	}

	resp := &types.CompareResponse{
		OverviewDiff:   extract.String(obj, "overview_diff"),
		KeyDifferences: []types.KeyDifference{},
		Recommendation: extract.String(obj, "recommendation"),
	}
	for _, d := range extract.Objects(obj, "key_differences") {
		resp.KeyDifferences = append(resp.KeyDifferences, types.KeyDifference{
			Category:       extract.String(d, "category"),
			ContractAPoint: orNotSpecified(extract.String(d, "contract_a_point")),
			ContractBPoint: orNotSpecified(extract.String(d, "contract_b_point")),
			Assessment:     extract.String(d, "assessment"),
		})
	}
	return resp
}

func clauseBlock(clauses []types.Clause) string {
	if len(clauses) == 0 {
		return types.NoClausesExtracted
	}
	lines := make([]string, len(clauses))
	for i, c := range clauses {
		lines[i] = fmt.Sprintf("- %s: %s", c.Category, c.Text)
	}
	return strings.Join(lines, "\n")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return types.NotSpecified
	}
	return s
}

func compareFallback(err error) *types.CompareResponse {
	return &types.CompareResponse{
		OverviewDiff:   "Error processing comparison.",
		KeyDifferences: []types.KeyDifference{},
		Recommendation: err.Error(),
	}
}
