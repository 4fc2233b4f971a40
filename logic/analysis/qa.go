package analysis

import (
	"context"
	"fmt"
	"strings"

	"contract-intel/logic/extract"
	"contract-intel/logic/rag"
	"contract-intel/pkg/logger"
	"contract-intel/types"
	"contract-intel/vars"
)

const rawAnswerLimit = 500

// Ask contractID 为空时跨全部合同检索。
// 只有检索失败返回 error；模型调用或解析失败都降级为普通回答。
func (s *Service) Ask(ctx context.Context, question, contractID string) (*types.QAResponse, error) {
	log := logger.FromContext(ctx, s.log)

	k := vars.GlobalQATopK
	if contractID != "" {
		k = vars.ScopedQATopK
	}
	docs, err := s.retriever.Retrieve(ctx, question, k, contractID)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(docs) == 0 {
		return &types.QAResponse{
			Answer:     types.NoRelevantInfoAnswer,
			Citations:  []types.Citation{},
			Confidence: types.ConfidenceLow,
		}, nil
	}

	prompt, err := vars.Render(vars.QAPrompt, map[string]string{
		"Context":  rag.FormatDocs(docs),
		"Question": question,
	})
	if err != nil {
		return nil, err
	}

	obj, raw, err := s.extractor.Extract(ctx, prompt, extract.QASchema)
	switch {
	case err == nil:
	case extract.IsParseError(err):
		log.Warn("qa.parse.failed", "error", err)
		return &types.QAResponse{
			Answer:     logger.Truncate(raw, rawAnswerLimit),
			Citations:  []types.Citation{},
			Confidence: types.ConfidenceLow,
		}, nil
	default:
		log.Error("qa.model.failed", "error", err)
		return &types.QAResponse{
			Answer:     fmt.Sprintf("I encountered an error analyzing the contracts. (%v)", err),
			Citations:  []types.Citation{},
			Confidence: types.ConfidenceZero,
		}, nil
	}

	resp := &types.QAResponse{
		Answer:     extract.String(obj, "answer"),
		Citations:  []types.Citation{},
		Confidence: strings.TrimSpace(extract.String(obj, "confidence")),
	}
	if resp.Confidence == "" {
		resp.Confidence = types.ConfidenceLow
	}
	for _, c := range extract.Objects(obj, "citations") {
		resp.Citations = append(resp.Citations, types.Citation{
			ClauseText:  extract.String(c, "clause_text"),
			ClauseType:  extract.String(c, "clause_type"),
			Explanation: extract.String(c, "explanation"),
		})
	}
	return resp, nil
}
