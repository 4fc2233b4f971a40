package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"contract-intel/vars"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"
)

// Retriever 检索协作方：contractID 为空表示不按合同过滤
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, contractID string) ([]*schema.Document, error)
}

// Hybrid 向量 + 关键词两路并发检索后融合
type Hybrid struct {
	vector  Retriever
	keyword Retriever
	cfg     *FusionConfig
	log     *slog.Logger
}

func NewHybrid(vector, keyword Retriever, cfg *FusionConfig, log *slog.Logger) *Hybrid {
	if log == nil {
		log = slog.Default()
	}
	return &Hybrid{vector: vector, keyword: keyword, cfg: cfg, log: log}
}

func (h *Hybrid) Retrieve(ctx context.Context, query string, k int, contractID string) ([]*schema.Document, error) {
	var vectorDocs, keywordDocs []*schema.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := h.vector.Retrieve(gctx, query, k, contractID)
		vectorDocs = docs
		return err
	})
	g.Go(func() error {
		docs, err := h.keyword.Retrieve(gctx, query, k, contractID)
		keywordDocs = docs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid retrieve: %w", err)
	}
	docs := Fuse(vectorDocs, keywordDocs, k, h.cfg)
	h.log.Debug("rag.hybrid", "vector", len(vectorDocs), "keyword", len(keywordDocs), "fused", len(docs))
	return docs, nil
}

// Select 按检索模式组装 Retriever
func Select(mode string, vector, keyword Retriever, log *slog.Logger) (Retriever, error) {
	switch mode {
	case vars.ML:
		if vector == nil {
			return nil, fmt.Errorf("retrieval mode %q needs a vector store", mode)
		}
		return vector, nil
	case vars.ES:
		if keyword == nil {
			return nil, fmt.Errorf("retrieval mode %q needs a keyword store", mode)
		}
		return keyword, nil
	case vars.HY, "":
		if vector == nil || keyword == nil {
			return nil, fmt.Errorf("retrieval mode %q needs both stores", vars.HY)
		}
		return NewHybrid(vector, keyword, nil, log), nil
	}
	return nil, fmt.Errorf("unsupported retrieval mode %q", mode)
}

// FormatDocs 拼接检索片段作为 prompt 上下文
func FormatDocs(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		source, _ := d.MetaData[vars.MetaSource].(string)
		if source == "" {
			source = "unknown"
		}
		parts = append(parts, fmt.Sprintf("Source: %s\nContent: %s", source, d.Content))
	}
	return strings.Join(parts, "\n\n")
}
