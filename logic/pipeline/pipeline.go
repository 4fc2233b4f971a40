package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contract-intel/logic/extract"
	"contract-intel/logic/rag"
	"contract-intel/pkg/logger"
	"contract-intel/types"
	"contract-intel/vars"

	"github.com/cloudwego/eino/compose"
)

// Pipeline 四个阶段固定顺序：
// extract_clauses -> analyze_risks -> lifecycle_analysis -> summarize
type Pipeline struct {
	retriever   rag.Retriever
	extractor   *extract.Extractor
	log         *slog.Logger
	categories  []string
	concurrency int

	runnable compose.Runnable[Seeded, *types.PipelineState]
}

type Option func(*Pipeline)

// WithConcurrency 阶段内并发数，1 表示顺序执行
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithCategories(categories []string) Option {
	return func(p *Pipeline) {
		if len(categories) > 0 {
			p.categories = categories
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New 编译阶段链，进程内只需构建一次
func New(ctx context.Context, retriever rag.Retriever, extractor *extract.Extractor, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		retriever:   retriever,
		extractor:   extractor,
		log:         slog.Default(),
		categories:  vars.ClauseCategories,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}

	chain := compose.NewChain[Seeded, *types.PipelineState]()
	chain.
		AppendLambda(compose.InvokableLambda(p.extractClauses)).
		AppendLambda(compose.InvokableLambda(p.analyzeRisks)).
		AppendLambda(compose.InvokableLambda(p.extractLifecycle)).
		AppendLambda(compose.InvokableLambda(p.summarize))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}
	p.runnable = runnable
	return p, nil
}

// Run 出错时返回已累积的部分状态和错误，不重试
func (p *Pipeline) Run(ctx context.Context, contractID string) (*types.PipelineState, error) {
	ctx = logger.WithContractID(ctx, contractID)
	log := logger.FromContext(ctx, p.log)
	start := time.Now()

	in := seed(contractID)
	out, err := p.runnable.Invoke(ctx, in)
	if err != nil {
		log.Error("pipeline.failed", "error", err, "elapsed", time.Since(start))
		return in.state, err
	}
	log.Info("pipeline.done", "clauses", len(out.ExtractedClauses), "risks", len(out.Risks), "elapsed", time.Since(start))
	return out, nil
}
