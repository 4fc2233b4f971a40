package analysis

import (
	"context"

	"contract-intel/logic/extract"
	"contract-intel/pkg/logger"
	"contract-intel/types"
	"contract-intel/vars"
)

func (s *Service) Rewrite(ctx context.Context, clauseText, instruction string) *types.RewriteResponse {
	prompt, err := vars.Render(vars.RewritePrompt, map[string]string{
		"Text":        clauseText,
		"Instruction": instruction,
	})
	if err == nil {
		var obj map[string]any
		obj, _, err = s.extractor.Extract(ctx, prompt, extract.RewriteSchema)
		if err == nil {
			return &types.RewriteResponse{
				RewrittenText: extract.String(obj, "rewritten_text"),
				Explanation:   extract.String(obj, "explanation"),
			}
		}
	}
	logger.FromContext(ctx, s.log).Warn("rewrite.failed", "error", err)
	return &types.RewriteResponse{
		RewrittenText: "Error generating rewrite.",
		Explanation:   err.Error(),
	}
}
