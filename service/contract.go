package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"contract-intel/logic/analysis"
	"contract-intel/logic/ingestion"
	"contract-intel/pkg/logger"
	"contract-intel/storage/blob"
	"contract-intel/storage/postgres"
	"contract-intel/types"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("contract not found")
	ErrUnsupportedType = errors.New("only .pdf and .txt contracts are supported")
)

// Enqueuer 后台分析队列，job.Queue 满足
type Enqueuer interface {
	Enqueue(ctx context.Context, contractID string) error
}

// ContractService 合同的上传、查询、删除、导出以及单次分析入口
type ContractService struct {
	repo     *postgres.ContractRepo
	files    blob.FileStore
	chunks   Ingester
	analysis *analysis.Service
	queue    Enqueuer
	log      *slog.Logger
}

func NewContractService(repo *postgres.ContractRepo, files blob.FileStore, chunks Ingester, an *analysis.Service, queue Enqueuer, log *slog.Logger) *ContractService {
	if log == nil {
		log = slog.Default()
	}
	return &ContractService{repo: repo, files: files, chunks: chunks, analysis: an, queue: queue, log: log}
}

// Upload 保存原文、建档并入队分析，立即返回 processing 状态的合同
func (s *ContractService) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (*postgres.Contract, error) {
	name := filepath.Base(filename)
	if !ingestion.Supported(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}

	id := uuid.NewString()
	key := id + "/" + name
	log := logger.FromContext(logger.WithContractID(ctx, id), s.log)

	if err := s.files.Save(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}
	c := &postgres.Contract{
		ID:        id,
		FileName:  name,
		SourceKey: key,
		Status:    postgres.StatusProcessing,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		_ = s.files.Remove(ctx, key)
		return nil, fmt.Errorf("create contract: %w", err)
	}
	if err := s.queue.Enqueue(ctx, id); err != nil {
		_ = s.repo.UpdateStatus(context.WithoutCancel(ctx), id, postgres.StatusFailed)
		return nil, fmt.Errorf("enqueue analysis: %w", err)
	}
	log.Info("contract.uploaded", "file", name, "size", size)
	return c, nil
}

// Analyze 对已有合同重新入库并分析
func (s *ContractService) Analyze(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, postgres.StatusProcessing); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, id); err != nil {
		_ = s.repo.UpdateStatus(context.WithoutCancel(ctx), id, postgres.StatusFailed)
		return fmt.Errorf("enqueue analysis: %w", err)
	}
	return nil
}

func (s *ContractService) Get(ctx context.Context, id string) (*postgres.Contract, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err, id)
	}
	return c, nil
}

func (s *ContractService) List(ctx context.Context, skip, limit int) ([]postgres.Contract, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, skip, limit)
}

// Delete 数据库级联删除后清理原文和检索 chunk，清理失败只记日志
func (s *ContractService) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err, id)
	}
	log := logger.FromContext(logger.WithContractID(ctx, id), s.log)
	if c.SourceKey != "" {
		if err := s.files.Remove(ctx, c.SourceKey); err != nil {
			log.Warn("contract.delete.source", "error", err)
		}
	}
	if err := s.chunks.Remove(ctx, id); err != nil {
		log.Warn("contract.delete.chunks", "error", err)
	}
	log.Info("contract.deleted")
	return nil
}

func (s *ContractService) Stats(ctx context.Context) (*types.Stats, error) {
	return s.repo.Stats(ctx, time.Now().UTC())
}

// Export 返回文件名和 xlsx 内容
func (s *ContractService) Export(ctx context.Context, id string) (string, []byte, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err := buildWorkbook(c)
	if err != nil {
		return "", nil, err
	}
	base := strings.TrimSuffix(c.FileName, filepath.Ext(c.FileName))
	return base + "_analysis.xlsx", data, nil
}

// Ask contractID 为空时跨全部合同检索
func (s *ContractService) Ask(ctx context.Context, question, contractID string) (*types.QAResponse, error) {
	if contractID != "" {
		if _, err := s.Get(ctx, contractID); err != nil {
			return nil, err
		}
	}
	return s.analysis.Ask(ctx, question, contractID)
}

// Compare 基于已落库条款对比，不重新检索
func (s *ContractService) Compare(ctx context.Context, idA, idB string) (*types.CompareResponse, error) {
	a, err := s.contractClauses(ctx, idA)
	if err != nil {
		return nil, err
	}
	b, err := s.contractClauses(ctx, idB)
	if err != nil {
		return nil, err
	}
	return s.analysis.Compare(ctx, a, b), nil
}

func (s *ContractService) contractClauses(ctx context.Context, id string) (types.ContractClauses, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return types.ContractClauses{}, err
	}
	out := types.ContractClauses{FileName: c.FileName}
	for _, cl := range c.Clauses {
		out.Clauses = append(out.Clauses, types.Clause{Category: cl.Category, Text: cl.Text})
	}
	return out, nil
}

func (s *ContractService) Rewrite(ctx context.Context, clauseText, instruction string) *types.RewriteResponse {
	return s.analysis.Rewrite(ctx, clauseText, instruction)
}

func (s *ContractService) UpdateAlertStatus(ctx context.Context, id uint, status string) (*postgres.Alert, error) {
	a, err := s.repo.UpdateAlertStatus(ctx, id, status)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("alert %d", id))
	}
	return a, nil
}

func translate(err error, id string) error {
	if postgres.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}
