package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"contract-intel/logic/ingestion/processors"
	"contract-intel/pkg/logger"
	"contract-intel/vars"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/semantic"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrEmptyDocument   = errors.New("document has no extractable text")
)

// ChunkStore 一个检索存储。重新入库前先按合同删除旧 chunk。
type ChunkStore interface {
	Store(ctx context.Context, chunks []*schema.Document) error
	DeleteByContractID(ctx context.Context, contractID string) error
}

type Ingestor struct {
	parsers  map[string]parser.Parser
	splitter document.Transformer
	stores   []ChunkStore
	log      *slog.Logger
}

func New(ctx context.Context, splitter document.Transformer, log *slog.Logger, stores ...ChunkStore) (*Ingestor, error) {
	if log == nil {
		log = slog.Default()
	}
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("create pdf parser: %w", err)
	}
	return &Ingestor{
		parsers: map[string]parser.Parser{
			".pdf": pdfParser,
			".txt": parser.TextParser{},
		},
		splitter: splitter,
		stores:   stores,
		log:      log,
	}, nil
}

// NewSemanticSplitter 按语义相似度切分
func NewSemanticSplitter(ctx context.Context, emb embedding.Embedder) (document.Transformer, error) {
	return semantic.NewSplitter(ctx, &semantic.Config{
		Embedding:    emb,
		BufferSize:   5,
		MinChunkSize: 200,
		Separators:   []string{"\n\n", "\n", ". ", "? ", "! ", "; "},
		LenFunc: func(s string) int {
			return len([]rune(s))
		},
		Percentile: 0.85,
	})
}

// Supported 只接受 pdf 和 txt
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// Ingest 解析、清洗、切分、写入全部检索存储，返回 chunk 数
func (i *Ingestor) Ingest(ctx context.Context, contractID, filename string, r io.Reader) (int, error) {
	ctx = logger.WithContractID(ctx, contractID)
	log := logger.FromContext(ctx, i.log)
	start := time.Now()

	p, ok := i.parsers[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
	meta := map[string]any{
		vars.MetaContractID:  contractID,
		vars.MetaSource:      filename,
		file.MetaKeyFileName: filename,
	}
	docs, err := p.Parse(ctx, r, parser.WithURI(filename), parser.WithExtraMeta(meta))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filename, err)
	}
	docs = processors.Clean(docs)
	if len(docs) == 0 {
		return 0, ErrEmptyDocument
	}

	chunks, err := i.splitter.Transform(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("split: %w", err)
	}
	chunks = processors.Clean(chunks)
	for n, chunk := range chunks {
		chunk.ID = fmt.Sprintf("%s_%d", contractID, n)
		if chunk.MetaData == nil {
			chunk.MetaData = make(map[string]any)
		}
		chunk.MetaData[vars.MetaContractID] = contractID
		chunk.MetaData[vars.MetaSource] = filename
		chunk.MetaData[vars.MetaChunkID] = chunk.ID
	}

	for _, s := range i.stores {
		if err := s.DeleteByContractID(ctx, contractID); err != nil {
			return 0, fmt.Errorf("remove old chunks: %w", err)
		}
		if err := s.Store(ctx, chunks); err != nil {
			return 0, fmt.Errorf("store chunks: %w", err)
		}
	}
	log.Info("ingestion.done", "file", filename, "chunks", len(chunks), "elapsed", time.Since(start))
	return len(chunks), nil
}

// Remove 删除合同时清理全部检索存储
func (i *Ingestor) Remove(ctx context.Context, contractID string) error {
	var errs []error
	for _, s := range i.stores {
		if err := s.DeleteByContractID(ctx, contractID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
