package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"contract-intel/vars"

	"github.com/cloudwego/eino-ext/components/indexer/milvus"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Connect 建立 milvus 连接，连接复用给 indexer 和 retriever
func Connect(ctx context.Context, addr string) (client.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cli, err := client.NewClient(connectCtx, client.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("连接 milvus 失败: %w", err)
	}
	return cli, nil
}

// NewIndexer 建表并返回 eino indexer。
// 每个 chunk 一行，contract_id 用于检索时按合同过滤。
func NewIndexer(ctx context.Context, cli client.Client, embedder embedding.Embedder, collection string, log *slog.Logger) (indexer.Indexer, error) {
	vecs, err := embedder.EmbedStrings(ctx, []string{"probe"})
	if err != nil {
		return nil, fmt.Errorf("embedder 不可用: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedder 返回空向量")
	}
	dim := len(vecs[0])
	log.Info("milvus.indexer.init", "collection", collection, "dim", dim)

	fields := []*entity.Field{
		{
			Name:       "id",
			DataType:   entity.FieldTypeVarChar,
			PrimaryKey: true,
			AutoID:     false,
			TypeParams: map[string]string{"max_length": "64"},
		},
		{
			Name:       vars.MetaContractID,
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "64"},
		},
		{
			Name:       "vector",
			DataType:   entity.FieldTypeFloatVector,
			TypeParams: map[string]string{"dim": fmt.Sprintf("%d", dim)},
		},
		{
			Name:       "content",
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "65535"},
		},
		{
			Name:       vars.MetaSource,
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "512"},
		},
		{
			Name:     "metadata",
			DataType: entity.FieldTypeJSON,
		},
	}

	idx, err := milvus.NewIndexer(ctx, &milvus.IndexerConfig{
		Client:            cli,
		Collection:        collection,
		Embedding:         embedder,
		Fields:            fields,
		DocumentConverter: rowConverter,
		MetricType:        milvus.L2,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 milvus indexer 失败: %w", err)
	}

	// 先 release 才能改索引
	_ = cli.ReleaseCollection(ctx, collection)
	if err := cli.DropIndex(ctx, collection, "vector"); err != nil {
		log.Debug("milvus.drop_index", "error", err)
	}
	hnsw, err := entity.NewIndexHNSW(entity.L2, 16, 200)
	if err != nil {
		return nil, err
	}
	if err := cli.CreateIndex(ctx, collection, "vector", hnsw, false); err != nil {
		return nil, fmt.Errorf("创建 HNSW 向量索引失败: %w", err)
	}
	if err := cli.CreateIndex(ctx, collection, vars.MetaContractID, entity.NewScalarIndex(), false); err != nil {
		return nil, fmt.Errorf("创建 contract_id 索引失败: %w", err)
	}
	if err := cli.LoadCollection(ctx, collection, false); err != nil {
		return nil, fmt.Errorf("load collection 失败: %w", err)
	}
	return idx, nil
}

// rowConverter 把 Document 转成 milvus 行
func rowConverter(_ context.Context, docs []*schema.Document, vectors [][]float64) ([]interface{}, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("docs(%d) 与 vectors(%d) 数量不一致", len(docs), len(vectors))
	}
	rows := make([]interface{}, len(docs))
	for i, doc := range docs {
		vec32 := make([]float32, len(vectors[i]))
		for j, v := range vectors[i] {
			vec32[j] = float32(v)
		}
		if doc.MetaData == nil {
			doc.MetaData = make(map[string]any)
		}
		contractID, _ := doc.MetaData[vars.MetaContractID].(string)
		source, _ := doc.MetaData[vars.MetaSource].(string)

		metaBytes, err := json.Marshal(doc.MetaData)
		if err != nil {
			metaBytes = []byte("{}")
		}
		rows[i] = map[string]interface{}{
			"id":                doc.ID,
			vars.MetaContractID: contractID,
			"vector":            vec32,
			"content":           doc.Content,
			vars.MetaSource:     source,
			"metadata":          metaBytes,
		}
	}
	return rows, nil
}

// DeleteByContractID 删除某合同的全部 chunk，重新入库前调用
func DeleteByContractID(ctx context.Context, cli client.Client, collection, contractID string) error {
	has, err := cli.HasCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("milvus has collection: %w", err)
	}
	if !has {
		return nil
	}
	if err := cli.Delete(ctx, collection, "", ContractFilter(contractID)); err != nil {
		return fmt.Errorf("milvus delete contract %s: %w", contractID, err)
	}
	return nil
}

// ChunkStore 组合 eino indexer 和按合同删除，供入库流程使用
type ChunkStore struct {
	idx        indexer.Indexer
	cli        client.Client
	collection string
}

func NewChunkStore(idx indexer.Indexer, cli client.Client, collection string) *ChunkStore {
	return &ChunkStore{idx: idx, cli: cli, collection: collection}
}

func (s *ChunkStore) Store(ctx context.Context, chunks []*schema.Document) error {
	if len(chunks) == 0 {
		return nil
	}
	if _, err := s.idx.Store(ctx, chunks); err != nil {
		return fmt.Errorf("milvus store: %w", err)
	}
	return nil
}

func (s *ChunkStore) DeleteByContractID(ctx context.Context, contractID string) error {
	return DeleteByContractID(ctx, s.cli, s.collection, contractID)
}
