package processors

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

var (
	controlRe = regexp.MustCompile(`[\x00-\x08\x0B-\x0C\x0E-\x1F\x7F]`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// CleanText 去掉控制字符和非法 UTF-8，合并空白
func CleanText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = controlRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Clean 清洗文档内容并丢弃空文档，否则 embedding 会报错
func Clean(src []*schema.Document) []*schema.Document {
	out := make([]*schema.Document, 0, len(src))
	for _, doc := range src {
		if doc == nil {
			continue
		}
		content := CleanText(doc.Content)
		if content == "" {
			continue
		}
		doc.Content = content
		out = append(out, doc)
	}
	return out
}
