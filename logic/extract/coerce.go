package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"contract-intel/vars"
)

var digitsRe = regexp.MustCompile(`\d+`)

// String 取字段并转成字符串，缺失或 null 返回 ""
func String(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// Int 宽松转换整数：整数值直接接受，字符串取第一段连续数字
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		d := digitsRe.FindString(t)
		if d == "" {
			return 0, false
		}
		n, err := strconv.Atoi(d)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// NoticeDays 提前通知天数，非正数视为未指定
func NoticeDays(v any) *int {
	n, ok := Int(v)
	if !ok || n <= 0 {
		return nil
	}
	return &n
}

// Date 严格按 YYYY-MM-DD 解析，失败返回 nil
func Date(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	d, err := time.Parse(vars.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}

// OptionalString 空串视为缺失
func OptionalString(m map[string]any, key string) *string {
	s := strings.TrimSpace(String(m, key))
	if s == "" {
		return nil
	}
	return &s
}

// Objects 取对象数组，非对象元素跳过
func Objects(m map[string]any, key string) []map[string]any {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
