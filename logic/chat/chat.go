package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"contract-intel/config"
	"contract-intel/pkg/logger"
	"contract-intel/vars"

	embedollama "github.com/cloudwego/eino-ext/components/embedding/ollama"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
)

// NewChatModel 按 provider 创建对话模型，进程内只创建一次
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case vars.OLLAMA:
		m, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama chat model: %w", err)
		}
		return m, nil
	case vars.OPENAI:
		temperature := cfg.Temperature
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: &temperature,
			Timeout:     cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
}

// CallOptions 每次调用都带上的模型参数
func CallOptions(cfg config.LLMConfig) []model.Option {
	return []model.Option{model.WithTemperature(cfg.Temperature)}
}

// NewEmbedder ollama embedding，外面包一层 NaN/Inf 清理
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, log *slog.Logger) (embedding.Embedder, error) {
	e, err := embedollama.NewEmbedder(ctx, &embedollama.EmbeddingConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return NewCleanEmbedder(e, log), nil
}

// CleanEmbedder 非有限的向量分量置 0，否则 milvus 写入失败
type CleanEmbedder struct {
	inner embedding.Embedder
	log   *slog.Logger
}

func NewCleanEmbedder(inner embedding.Embedder, log *slog.Logger) *CleanEmbedder {
	if log == nil {
		log = slog.Default()
	}
	return &CleanEmbedder{inner: inner, log: log}
}

func (e *CleanEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	vectors, err := e.inner.EmbedStrings(ctx, texts, opts...)
	if err != nil {
		return nil, err
	}
	var dirty []int
	for i, vec := range vectors {
		if zeroNonFinite(vec) > 0 {
			dirty = append(dirty, i)
		}
	}
	if len(dirty) > 0 {
		// 入库时 ctx 带 contract_id，能定位到具体合同的 chunk
		logger.FromContext(ctx, e.log).Warn("embedding.non_finite", "chunks", dirty, "texts", len(texts))
	}
	return vectors, nil
}

func zeroNonFinite(vec []float64) int {
	n := 0
	for j, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			vec[j] = 0
			n++
		}
	}
	return n
}
