package milvus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"contract-intel/vars"

	"github.com/cloudwego/eino-ext/components/retriever/milvus"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Retriever 向量检索，可按合同过滤
type Retriever struct {
	r   retriever.Retriever
	log *slog.Logger
}

func NewRetriever(ctx context.Context, cli client.Client, emb embedding.Embedder, collection string, log *slog.Logger) (*Retriever, error) {
	r, err := milvus.NewRetriever(ctx, &milvus.RetrieverConfig{
		Client:            cli,
		Collection:        collection,
		VectorField:       "vector",
		OutputFields:      []string{"content", vars.MetaContractID, vars.MetaSource},
		DocumentConverter: convertResult,
		MetricType:        entity.L2,
		TopK:              vars.GlobalQATopK,
		Embedding:         emb,
	})
	if err != nil {
		return nil, fmt.Errorf("init milvus retriever: %w", err)
	}
	return &Retriever{r: r, log: log}, nil
}

// Retrieve contractID 为空时全库检索
func (m *Retriever) Retrieve(ctx context.Context, query string, k int, contractID string) ([]*schema.Document, error) {
	opts := []retriever.Option{retriever.WithTopK(k)}
	if contractID != "" {
		opts = append(opts, milvus.WithFilter(ContractFilter(contractID)))
	}
	docs, err := m.r.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("milvus retrieve: %w", err)
	}
	m.log.Debug("milvus.retrieve", "query", query, "k", k, "contract_id", contractID, "hits", len(docs))
	return docs, nil
}

// ContractFilter 生成 contract_id 等值过滤表达式
func ContractFilter(contractID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(contractID)
	return fmt.Sprintf(`%s == "%s"`, vars.MetaContractID, escaped)
}

// convertResult 带上分数，供混合检索融合使用
func convertResult(_ context.Context, result client.SearchResult) ([]*schema.Document, error) {
	docs := make([]*schema.Document, result.IDs.Len())
	for i := 0; i < result.IDs.Len(); i++ {
		id, err := result.IDs.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("failed to get id: %w", err)
		}
		doc := &schema.Document{ID: id, MetaData: make(map[string]any)}
		if len(result.Scores) > i {
			doc = doc.WithScore(float64(result.Scores[i]))
		}
		for _, field := range result.Fields {
			value, err := field.GetAsString(i)
			if err != nil {
				continue
			}
			switch field.Name() {
			case "content":
				doc.Content = value
			case vars.MetaContractID, vars.MetaSource:
				doc.MetaData[field.Name()] = value
			}
		}
		docs[i] = doc
	}
	return docs, nil
}
