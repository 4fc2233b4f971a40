package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"contract-intel/pkg/logger"
	"contract-intel/storage/blob"
	"contract-intel/storage/postgres"
	"contract-intel/types"
)

// Ingester 解析原文并写入检索存储
type Ingester interface {
	Ingest(ctx context.Context, contractID, filename string, r io.Reader) (int, error)
	Remove(ctx context.Context, contractID string) error
}

// Analyzer 四阶段流水线
type Analyzer interface {
	Run(ctx context.Context, contractID string) (*types.PipelineState, error)
}

// Persister 流水线结果落库，失败时自行标记 failed
type Persister interface {
	Apply(ctx context.Context, contractID string, st *types.PipelineState) error
}

// AnalysisRunner 入库 -> 流水线 -> 落库，同一合同的运行互斥
type AnalysisRunner struct {
	repo     *postgres.ContractRepo
	files    blob.FileStore
	ingester Ingester
	analyzer Analyzer
	mapper   Persister
	locks    *keyedMutex
	log      *slog.Logger
}

func NewAnalysisRunner(repo *postgres.ContractRepo, files blob.FileStore, ingester Ingester, analyzer Analyzer, mapper Persister, log *slog.Logger) *AnalysisRunner {
	if log == nil {
		log = slog.Default()
	}
	return &AnalysisRunner{
		repo:     repo,
		files:    files,
		ingester: ingester,
		analyzer: analyzer,
		mapper:   mapper,
		locks:    newKeyedMutex(),
		log:      log,
	}
}

// Run 任一步失败合同都是 failed；成功由 mapper 置为 analyzed
func (r *AnalysisRunner) Run(ctx context.Context, contractID string) (err error) {
	unlock := r.locks.Lock(contractID)
	defer unlock()

	ctx = logger.WithContractID(ctx, contractID)
	log := logger.FromContext(ctx, r.log)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("analysis.panic", "panic", rec, "stack", string(debug.Stack()))
			err = r.fail(ctx, log, contractID, "panic", fmt.Errorf("%v", rec))
		}
	}()

	c, err := r.repo.Get(ctx, contractID)
	if err != nil {
		if postgres.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, contractID)
		}
		return err
	}
	if err := r.repo.UpdateStatus(ctx, contractID, postgres.StatusProcessing); err != nil {
		return err
	}

	if err := r.ingest(ctx, c); err != nil {
		return r.fail(ctx, log, contractID, "ingest", err)
	}

	st, err := r.analyzer.Run(ctx, contractID)
	if err != nil {
		if st != nil {
			log.Debug("analysis.partial_state", "clauses", len(st.ExtractedClauses), "risks", len(st.Risks))
		}
		return r.fail(ctx, log, contractID, "pipeline", err)
	}

	if err := r.mapper.Apply(ctx, contractID, st); err != nil {
		return err
	}
	log.Info("analysis.done", "elapsed", time.Since(start))
	return nil
}

func (r *AnalysisRunner) ingest(ctx context.Context, c *postgres.Contract) error {
	rc, err := r.files.Open(ctx, c.SourceKey)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()
	_, err = r.ingester.Ingest(ctx, c.ID, c.FileName, rc)
	return err
}

func (r *AnalysisRunner) fail(ctx context.Context, log *slog.Logger, contractID, step string, err error) error {
	log.Error("analysis.failed", "step", step, "error", err)
	// 运行 ctx 可能已超时，状态更新用独立 ctx
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if serr := r.repo.UpdateStatus(sctx, contractID, postgres.StatusFailed); serr != nil {
		log.Error("analysis.mark_failed", "error", serr)
	}
	return fmt.Errorf("%s: %w", step, err)
}
