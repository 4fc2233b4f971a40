package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticeDays(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *int
	}{
		{"integer", float64(30), intPtr(30)},
		{"int", 45, intPtr(45)},
		{"string with words", "60 days", intPtr(60)},
		{"fraction rejected", 12.5, nil},
		{"zero is absent", float64(0), nil},
		{"negative is absent", float64(-5), nil},
		{"no digits", "thirty days", nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NoticeDays(tt.in))
		})
	}
}

func TestDate(t *testing.T) {
	d := Date("2025-12-31")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), *d)

	assert.Nil(t, Date("12/31/2025"))
	assert.Nil(t, Date("December 31, 2025"))
	assert.Nil(t, Date(nil))
	assert.Nil(t, Date(float64(20251231)))
}

func TestString(t *testing.T) {
	m := map[string]any{
		"s":   "text",
		"n":   float64(3),
		"b":   true,
		"nil": nil,
		"obj": map[string]any{"k": "v"},
	}
	assert.Equal(t, "text", String(m, "s"))
	assert.Equal(t, "3", String(m, "n"))
	assert.Equal(t, "true", String(m, "b"))
	assert.Equal(t, "", String(m, "nil"))
	assert.Equal(t, "", String(m, "missing"))
	assert.Equal(t, `{"k":"v"}`, String(m, "obj"))

	assert.Nil(t, OptionalString(m, "nil"))
	assert.Equal(t, "text", *OptionalString(m, "s"))
}

func TestObjects(t *testing.T) {
	m := map[string]any{"items": []any{map[string]any{"a": 1}, "skip", map[string]any{"b": 2}}}
	assert.Len(t, Objects(m, "items"), 2)
	assert.Nil(t, Objects(m, "missing"))
}

func intPtr(n int) *int { return &n }
