package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"contract-intel/pkg/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrNoStructuredData = errors.New("no structured data in reply")
	ErrNullResult       = errors.New("model returned null")
)

var (
	fenceRe = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\r?\n?(.*?)```")
	braceRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseError 模型输出无法解析成结构化数据。Raw 保留原始回复，供降级使用。
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError 区分解析失败与调用失败
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Generator 只依赖 Generate，eino 的 ChatModel 都满足
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Extractor 调用模型并把自由文本回复解析为 map
type Extractor struct {
	model  Generator
	logger *slog.Logger
	opts   []model.Option
}

// New opts 作用于每次调用，比如 model.WithTemperature
func New(m Generator, l *slog.Logger, opts ...model.Option) *Extractor {
	if l == nil {
		l = slog.Default()
	}
	return &Extractor{model: m, logger: l, opts: opts}
}

// Invoke 单次调用模型，返回原始文本。重试交给模型客户端自己。
func (e *Extractor) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := e.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, e.opts...)
	if err != nil {
		return "", fmt.Errorf("invoke model: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	raw := strings.TrimSpace(resp.Content)
	logger.FromContext(ctx, e.logger).Debug("llm.reply", "raw", logger.Truncate(raw, 300))
	return raw, nil
}

// Extract 调用模型并解析。
// 调用失败原样返回；解析或校验失败返回 *ParseError，同时返回原始文本。
func (e *Extractor) Extract(ctx context.Context, prompt string, s *jsonschema.Schema) (map[string]any, string, error) {
	raw, err := e.Invoke(ctx, prompt)
	if err != nil {
		return nil, "", err
	}
	obj, err := ParseReply(raw)
	if err != nil {
		logger.FromContext(ctx, e.logger).Warn("llm.parse.failed", "error", err)
		return nil, raw, err
	}
	if s != nil {
		if err := s.Validate(map[string]any(obj)); err != nil {
			logger.FromContext(ctx, e.logger).Warn("llm.schema.failed", "error", err)
			return nil, raw, &ParseError{Raw: raw, Err: fmt.Errorf("schema: %w", err)}
		}
	}
	return obj, raw, nil
}

// ParseReply 两步解析：
// 1. 有 ``` 代码块时取第一个代码块的内容
// 2. 否则（或代码块内容不是合法 JSON）取第一个 { 到最后一个 } 的片段
func ParseReply(reply string) (map[string]any, error) {
	candidate := strings.TrimSpace(reply)
	if m := fenceRe.FindStringSubmatch(reply); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	v, err := decode(candidate)
	if err != nil {
		span := braceRe.FindString(candidate)
		if span == "" {
			return nil, &ParseError{Raw: reply, Err: ErrNoStructuredData}
		}
		if v, err = decode(span); err != nil {
			return nil, &ParseError{Raw: reply, Err: err}
		}
	}

	if v == nil {
		return nil, &ParseError{Raw: reply, Err: ErrNullResult}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Raw: reply, Err: ErrNoStructuredData}
	}
	return obj, nil
}

func decode(s string) (any, error) {
	if s == "" {
		return nil, ErrNoStructuredData
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
