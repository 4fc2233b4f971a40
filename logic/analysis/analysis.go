// Package analysis 不走流水线的单次分析：问答、合同对比、条款改写。
// 模型输出异常时都返回降级但结构完整的结果。
package analysis

import (
	"log/slog"

	"contract-intel/logic/extract"
	"contract-intel/logic/rag"
)

type Service struct {
	retriever rag.Retriever
	extractor *extract.Extractor
	log       *slog.Logger
}

func New(retriever rag.Retriever, extractor *extract.Extractor, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{retriever: retriever, extractor: extractor, log: log}
}
