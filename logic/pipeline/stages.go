package pipeline

import (
	"context"
	"fmt"
	"strings"

	"contract-intel/logic/extract"
	"contract-intel/logic/rag"
	"contract-intel/pkg/logger"
	"contract-intel/types"
	"contract-intel/vars"

	"golang.org/x/sync/errgroup"
)

// extractClauses 每个类别独立检索、独立抽取，单个类别解析失败只跳过该类别
func (p *Pipeline) extractClauses(ctx context.Context, in Seeded) (ClausesExtracted, error) {
	st := in.state
	log := logger.FromContext(ctx, p.log)

	found := make([]*types.Clause, len(p.categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, category := range p.categories {
		g.Go(func() error {
			docs, err := p.retriever.Retrieve(gctx, category+" clause", vars.ClauseTopK, st.ContractID)
			if err != nil {
				return fmt.Errorf("retrieve %s: %w", category, err)
			}
			prompt, err := vars.Render(vars.ClauseExtractPrompt, map[string]string{
				"Category": category,
				"Context":  rag.FormatDocs(docs),
			})
			if err != nil {
				return err
			}
			obj, _, err := p.extractor.Extract(gctx, prompt, extract.ClauseSchema)
			if err != nil {
				if extract.IsParseError(err) {
					log.Info("pipeline.clause.skipped", "category", category, "reason", err)
					return nil
				}
				return fmt.Errorf("extract %s: %w", category, err)
			}
			clause := types.Clause{
				Category: strings.TrimSpace(extract.String(obj, "category")),
				Text:     strings.TrimSpace(extract.String(obj, "text")),
				Summary:  extract.String(obj, "summary"),
			}
			if clause.Text == "" {
				log.Info("pipeline.clause.skipped", "category", category, "reason", "empty text")
				return nil
			}
			if clause.Category == "" {
				clause.Category = category
			}
			found[i] = &clause
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ClausesExtracted{}, err
	}

	clauses := make([]types.Clause, 0, len(found))
	for _, c := range found {
		if c != nil {
			clauses = append(clauses, *c)
		}
	}
	st.ExtractedClauses = clauses
	log.Info("pipeline.stage.done", "stage", "extract_clauses", "clauses", len(clauses))
	return ClausesExtracted{state: st}, nil
}

// analyzeRisks 对每个已抽取条款做风险分级，结果按来源类别打标
func (p *Pipeline) analyzeRisks(ctx context.Context, in ClausesExtracted) (RisksAnalyzed, error) {
	st := in.state
	log := logger.FromContext(ctx, p.log)

	found := make([]*types.RiskAssessment, len(st.ExtractedClauses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, clause := range st.ExtractedClauses {
		g.Go(func() error {
			prompt, err := vars.Render(vars.RiskAnalysisPrompt, map[string]string{
				"Category": clause.Category,
				"Text":     clause.Text,
			})
			if err != nil {
				return err
			}
			obj, _, err := p.extractor.Extract(gctx, prompt, extract.RiskSchema)
			if err != nil {
				if extract.IsParseError(err) {
					log.Info("pipeline.risk.skipped", "category", clause.Category, "reason", err)
					return nil
				}
				return fmt.Errorf("analyze risk %s: %w", clause.Category, err)
			}
			found[i] = &types.RiskAssessment{
				ClauseCategory: clause.Category,
				RiskLevel:      extract.String(obj, "risk_level"),
				Reasoning:      extract.String(obj, "reasoning"),
				Recommendation: extract.String(obj, "recommendation"),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RisksAnalyzed{}, err
	}

	risks := make([]types.RiskAssessment, 0, len(found))
	for _, r := range found {
		if r != nil {
			risks = append(risks, *r)
		}
	}
	st.Risks = risks
	log.Info("pipeline.stage.done", "stage", "analyze_risks", "risks", len(risks))
	return RisksAnalyzed{state: st}, nil
}

// extractLifecycle 解析失败时为空映射
func (p *Pipeline) extractLifecycle(ctx context.Context, in RisksAnalyzed) (LifecycleExtracted, error) {
	st := in.state
	log := logger.FromContext(ctx, p.log)

	docs, err := p.retriever.Retrieve(ctx, vars.LifecycleQuery, vars.LifecycleTopK, st.ContractID)
	if err != nil {
		return LifecycleExtracted{}, fmt.Errorf("retrieve lifecycle: %w", err)
	}
	prompt, err := vars.Render(vars.LifecyclePrompt, map[string]string{"Context": rag.FormatDocs(docs)})
	if err != nil {
		return LifecycleExtracted{}, err
	}

	lifecycle := types.Lifecycle{}
	obj, _, err := p.extractor.Extract(ctx, prompt, extract.LifecycleSchema)
	switch {
	case err == nil:
		lifecycle = obj
	case extract.IsParseError(err):
		log.Warn("pipeline.lifecycle.defaulted", "reason", err)
	default:
		return LifecycleExtracted{}, fmt.Errorf("extract lifecycle: %w", err)
	}

	st.Lifecycle = lifecycle
	log.Info("pipeline.stage.done", "stage", "lifecycle_analysis", "fields", len(lifecycle))
	return LifecycleExtracted{state: st}, nil
}

// summarize 原样保存模型回复，不做 JSON 解析
func (p *Pipeline) summarize(ctx context.Context, in LifecycleExtracted) (*types.PipelineState, error) {
	st := in.state

	prompt, err := vars.Render(vars.SummaryPrompt, map[string]string{
		"Clauses": clausesContext(st.ExtractedClauses),
		"Risks":   risksContext(st.Risks),
	})
	if err != nil {
		return nil, err
	}
	text, err := p.extractor.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	st.Summary = &text
	logger.FromContext(ctx, p.log).Info("pipeline.stage.done", "stage", "summarize", "chars", len(text))
	return st, nil
}

func clausesContext(clauses []types.Clause) string {
	lines := make([]string, 0, len(clauses))
	for _, c := range clauses {
		text := c.Text
		if text == "" {
			text = "Not found"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", c.Category, text))
	}
	return strings.Join(lines, "\n")
}

func risksContext(risks []types.RiskAssessment) string {
	lines := make([]string, 0, len(risks))
	for _, r := range risks {
		lines = append(lines, fmt.Sprintf("- %s: %s Risk. %s", r.ClauseCategory, r.RiskLevel, r.Reasoning))
	}
	return strings.Join(lines, "\n")
}
