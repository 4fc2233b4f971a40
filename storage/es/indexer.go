package es

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"contract-intel/vars"

	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const mapping = `
{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "contract_id": { "type": "keyword" },
      "chunk_id":    { "type": "keyword" },
      "source":      { "type": "keyword" },
      "content": {
        "type": "text",
        "analyzer": "english"
      }
    }
  }
}`

// Store ES 关键词索引，与 milvus 同步存储 chunk
type Store struct {
	client *elasticsearch.Client
	index  string
	log    *slog.Logger
}

// NewStore 初始化客户端并确保索引存在
func NewStore(ctx context.Context, addresses []string, index string, log *slog.Logger) (*Store, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}
	s := &Store{client: client, index: index, log: log}
	if err := s.initMapping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initMapping(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	s.log.Info("es.index.create", "index", s.index)
	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index response error: %s", res.String())
	}
	return nil
}

// Store 批量写入 chunk，_id 用 chunk ID 保证幂等
func (s *Store) Store(ctx context.Context, chunks []*schema.Document) error {
	if len(chunks) == 0 {
		return nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:  s.index,
		Client: s.client,
	})
	if err != nil {
		return err
	}

	for _, chunk := range chunks {
		data, err := json.Marshal(chunkBody(chunk))
		if err != nil {
			return err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: chunk.ID,
			Body:       strings.NewReader(string(data)),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, _ esutil.BulkIndexerResponseItem, err error) {
				s.log.Error("es.bulk.item.failed", "chunk_id", item.DocumentID, "error", err)
			},
		})
		if err != nil {
			return err
		}
	}

	if err := bi.Close(ctx); err != nil {
		return err
	}
	if stats := bi.Stats(); stats.NumFailed > 0 {
		return fmt.Errorf("es bulk: %d of %d chunks failed", stats.NumFailed, stats.NumAdded)
	}
	return nil
}

func chunkBody(chunk *schema.Document) map[string]interface{} {
	body := map[string]interface{}{
		vars.MetaChunkID: chunk.ID,
		"content":        chunk.Content,
	}
	if v, ok := chunk.MetaData[vars.MetaContractID]; ok {
		body[vars.MetaContractID] = v
	}
	if v, ok := chunk.MetaData[vars.MetaSource]; ok {
		body[vars.MetaSource] = v
	}
	return body
}

// DeleteByContractID 删除某合同的全部 chunk
func (s *Store) DeleteByContractID(ctx context.Context, contractID string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				vars.MetaContractID: contractID,
			},
		},
	}
	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return fmt.Errorf("encode query: %w", err)
	}

	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		strings.NewReader(buf.String()),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("es delete request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete response error: %s", res.String())
	}
	s.log.Info("es.chunks.deleted", "contract_id", contractID)
	return nil
}
