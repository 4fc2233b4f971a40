package rag

import (
	"sort"

	"github.com/cloudwego/eino/schema"
)

// FusionConfig 混合检索融合配置
type FusionConfig struct {
	VectorWeight  float64 // 向量检索权重，默认 0.6
	KeywordWeight float64 // 关键词检索权重，默认 0.4

	// 向量分数是 L2 距离，越小越相关
	VectorLowerIsBetter bool
}

func DefaultFusionConfig() *FusionConfig {
	return &FusionConfig{
		VectorWeight:        0.6,
		KeywordWeight:       0.4,
		VectorLowerIsBetter: true,
	}
}

type fused struct {
	doc   *schema.Document
	score float64
	order int
}

// Fuse 合并向量与关键词两路结果：
// 1. 各自 min-max 归一化到 [0,1]
// 2. 按 chunk ID 去重，同一 chunk 两路分数加权累加
// 3. 按融合分数降序，返回前 k 个
func Fuse(vectorDocs, keywordDocs []*schema.Document, k int, cfg *FusionConfig) []*schema.Document {
	if cfg == nil {
		cfg = DefaultFusionConfig()
	}
	vs := normalize(vectorDocs, cfg.VectorLowerIsBetter)
	ks := normalize(keywordDocs, false)

	byID := make(map[string]*fused)
	var all []*fused
	add := func(docs []*schema.Document, scores []float64, weight float64) {
		for i, doc := range docs {
			if doc == nil {
				continue
			}
			if f, ok := byID[doc.ID]; ok {
				f.score += scores[i] * weight
				continue
			}
			f := &fused{doc: doc, score: scores[i] * weight, order: len(all)}
			byID[doc.ID] = f
			all = append(all, f)
		}
	}
	add(vectorDocs, vs, cfg.VectorWeight)
	add(keywordDocs, ks, cfg.KeywordWeight)

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score == all[j].score {
			return all[i].order < all[j].order
		}
		return all[i].score > all[j].score
	})
	if k > 0 && len(all) > k {
		all = all[:k]
	}

	out := make([]*schema.Document, len(all))
	for i, f := range all {
		out[i] = f.doc.WithScore(f.score)
	}
	return out
}

// normalize min-max 归一化，不修改原文档
func normalize(docs []*schema.Document, lowerIsBetter bool) []float64 {
	scores := make([]float64, len(docs))
	if len(docs) == 0 {
		return scores
	}
	first := true
	var minScore, maxScore float64
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		s := doc.Score()
		if first {
			minScore, maxScore, first = s, s, false
			continue
		}
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		// 分数全相同时视为同等相关
		if maxScore == minScore {
			scores[i] = 1
			continue
		}
		n := (doc.Score() - minScore) / (maxScore - minScore)
		if lowerIsBetter {
			n = 1 - n
		}
		scores[i] = n
	}
	return scores
}
