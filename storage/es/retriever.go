package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"contract-intel/vars"

	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Retrieve BM25 检索，contractID 非空时按合同过滤
func (s *Store) Retrieve(ctx context.Context, query string, k int, contractID string) ([]*schema.Document, error) {
	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(buildQuery(query, k, contractID)); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(buf.String()),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es search response error: %s", res.String())
	}

	docs, err := parseHits(res.Body)
	if err != nil {
		return nil, err
	}
	s.log.Debug("es.retrieve", "query", query, "k", k, "contract_id", contractID, "hits", len(docs))
	return docs, nil
}

func buildQuery(query string, k int, contractID string) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []map[string]interface{}{
			{"match": map[string]interface{}{"content": map[string]interface{}{"query": query}}},
		},
	}
	if contractID != "" {
		boolQuery["filter"] = []map[string]interface{}{
			{"term": map[string]interface{}{vars.MetaContractID: contractID}},
		}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"size":  k,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string                 `json:"_id"`
			Score  float64                `json:"_score"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func parseHits(body io.Reader) ([]*schema.Document, error) {
	var result searchResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse es response: %w", err)
	}
	docs := make([]*schema.Document, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		doc := &schema.Document{
			ID:       hit.ID,
			Content:  toString(hit.Source["content"]),
			MetaData: make(map[string]any),
		}
		doc = doc.WithScore(hit.Score)
		for _, key := range []string{vars.MetaContractID, vars.MetaSource, vars.MetaChunkID} {
			if v, ok := hit.Source[key]; ok {
				doc.MetaData[key] = v
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
