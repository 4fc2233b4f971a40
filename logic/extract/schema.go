package extract

import "github.com/santhosh-tekuri/jsonschema/v5"

// 只校验字段是否存在，类型由调用方宽松转换
var (
	ClauseSchema    = jsonschema.MustCompileString("clause.json", `{"type":"object","required":["text"]}`)
	RiskSchema      = jsonschema.MustCompileString("risk.json", `{"type":"object"}`)
	LifecycleSchema = jsonschema.MustCompileString("lifecycle.json", `{"type":"object"}`)
	QASchema        = jsonschema.MustCompileString("qa.json", `{"type":"object","required":["answer"]}`)
	CompareSchema   = jsonschema.MustCompileString("compare.json", `{"type":"object"}`)
	RewriteSchema   = jsonschema.MustCompileString("rewrite.json", `{"type":"object","required":["rewritten_text"]}`)
)
