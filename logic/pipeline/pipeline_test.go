package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"contract-intel/logic/extract"
	"contract-intel/vars"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel 按 prompt 中的关键字返回预设回复
type scriptedModel struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts []string
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	prompt := input[len(input)-1].Content
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	for key, err := range m.errs {
		if strings.Contains(prompt, key) {
			return nil, err
		}
	}
	for key, reply := range m.replies {
		if strings.Contains(prompt, key) {
			return schema.AssistantMessage(reply, nil), nil
		}
	}
	return schema.AssistantMessage("null", nil), nil
}

func (m *scriptedModel) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.prompts {
		if strings.Contains(p, key) {
			n++
		}
	}
	return n
}

type stubRetriever struct {
	mu      sync.Mutex
	err     error
	queries []string
	filters []string
}

func (r *stubRetriever) Retrieve(_ context.Context, query string, _ int, contractID string) ([]*schema.Document, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.filters = append(r.filters, contractID)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return []*schema.Document{{
		Content:  "excerpt for " + query,
		MetaData: map[string]any{vars.MetaSource: "msa.pdf"},
	}}, nil
}

const (
	terminationKey = "Extract the 'Termination' clause"
	liabilityKey   = "Extract the 'Liability' clause"
	riskKey        = "Analyze the risk level"
	lifecycleKey   = "Extract the following lifecycle information"
	summaryKey     = "executive summary"
)

func happyReplies() map[string]string {
	return map[string]string{
		terminationKey: "```json\n{\"category\":\"Termination\",\"text\":\"Either party may terminate with 30 days notice.\",\"summary\":\"30 day exit\"}\n```",
		liabilityKey:   `Here it is: {"category":"Liability","text":"Liability is unlimited.","summary":"uncapped"}`,
		riskKey:        `{"risk_level":"High","reasoning":"Unlimited liability.","recommendation":"Negotiate a cap."}`,
		lifecycleKey:   `{"start_date":"2024-01-01","end_date":"2026-01-01","renewal_terms":"Auto-renews for 1 year","notice_period_days":30}`,
		summaryKey:     "Overview: a services agreement.",
	}
}

func newPipeline(t *testing.T, m *scriptedModel, r *stubRetriever, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(context.Background(), r, extract.New(m, nil), opts...)
	require.NoError(t, err)
	return p
}

func TestRunHappyPath(t *testing.T) {
	m := &scriptedModel{replies: happyReplies()}
	r := &stubRetriever{}
	p := newPipeline(t, m, r)

	st, err := p.Run(context.Background(), "c1")
	require.NoError(t, err)

	require.Len(t, st.ExtractedClauses, 2)
	assert.Equal(t, "Termination", st.ExtractedClauses[0].Category)
	assert.Equal(t, "Liability", st.ExtractedClauses[1].Category)

	require.Len(t, st.Risks, 2)
	assert.Equal(t, "Termination", st.Risks[0].ClauseCategory)
	assert.Equal(t, "High", st.Risks[0].RiskLevel)

	assert.Equal(t, "2026-01-01", st.Lifecycle["end_date"])
	require.NotNil(t, st.Summary)
	assert.Equal(t, "Overview: a services agreement.", *st.Summary)

	// 每个类别一次检索，加一次生命周期检索，全部按合同过滤
	assert.Len(t, r.queries, len(vars.ClauseCategories)+1)
	for _, f := range r.filters {
		assert.Equal(t, "c1", f)
	}
	assert.Contains(t, r.queries, "Termination clause")
	assert.Contains(t, r.queries, vars.LifecycleQuery)
	assert.Equal(t, 2, m.count(riskKey))
}

func TestSummaryPromptCarriesClausesAndRisks(t *testing.T) {
	m := &scriptedModel{replies: happyReplies()}
	p := newPipeline(t, m, &stubRetriever{})

	_, err := p.Run(context.Background(), "c1")
	require.NoError(t, err)

	var summaryPrompt string
	for _, prompt := range m.prompts {
		if strings.Contains(prompt, summaryKey) {
			summaryPrompt = prompt
		}
	}
	assert.Contains(t, summaryPrompt, "- Liability: Liability is unlimited.")
	assert.Contains(t, summaryPrompt, "- Termination: High Risk. Unlimited liability.")
}

func TestParseFailureSkipsOnlyThatItem(t *testing.T) {
	replies := happyReplies()
	replies[terminationKey] = "I could not find a termination clause."
	replies[riskKey] = "High, probably."
	m := &scriptedModel{replies: replies}
	p := newPipeline(t, m, &stubRetriever{})

	st, err := p.Run(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, st.ExtractedClauses, 1)
	assert.Equal(t, "Liability", st.ExtractedClauses[0].Category)
	assert.Empty(t, st.Risks)
	assert.NotNil(t, st.Summary)
}

func TestCategoryFilledWhenMissing(t *testing.T) {
	replies := happyReplies()
	replies[terminationKey] = `{"text":"Terminable at will."}`
	p := newPipeline(t, &scriptedModel{replies: replies}, &stubRetriever{})

	st, err := p.Run(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Termination", st.ExtractedClauses[0].Category)
}

func TestLifecycleDefaultsToEmpty(t *testing.T) {
	replies := happyReplies()
	replies[lifecycleKey] = "The contract has no dates."
	p := newPipeline(t, &scriptedModel{replies: replies}, &stubRetriever{})

	st, err := p.Run(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, st.Lifecycle)
	assert.Empty(t, st.Lifecycle)
}

func TestRetrievalErrorAborts(t *testing.T) {
	m := &scriptedModel{replies: happyReplies()}
	r := &stubRetriever{err: errors.New("milvus unavailable")}
	p := newPipeline(t, m, r)

	st, err := p.Run(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "milvus unavailable")
	require.NotNil(t, st)
	assert.Equal(t, "c1", st.ContractID)
	assert.Nil(t, st.ExtractedClauses)
	assert.Nil(t, st.Summary)
	assert.Equal(t, 0, m.count(summaryKey))
}

func TestTransportErrorKeepsPartialState(t *testing.T) {
	m := &scriptedModel{
		replies: happyReplies(),
		errs:    map[string]error{summaryKey: errors.New("model timeout")},
	}
	p := newPipeline(t, m, &stubRetriever{})

	st, err := p.Run(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model timeout")
	assert.Len(t, st.ExtractedClauses, 2)
	assert.Len(t, st.Risks, 2)
	assert.NotNil(t, st.Lifecycle)
	assert.Nil(t, st.Summary)
}

func TestConcurrentStagesKeepOrder(t *testing.T) {
	seq, err := newPipeline(t, &scriptedModel{replies: happyReplies()}, &stubRetriever{}).Run(context.Background(), "c1")
	require.NoError(t, err)
	par, err := newPipeline(t, &scriptedModel{replies: happyReplies()}, &stubRetriever{}, WithConcurrency(4)).Run(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, seq.ExtractedClauses, par.ExtractedClauses)
	assert.Equal(t, seq.Risks, par.Risks)
}

func TestWithCategories(t *testing.T) {
	r := &stubRetriever{}
	p := newPipeline(t, &scriptedModel{replies: happyReplies()}, r, WithCategories([]string{"Liability"}))

	st, err := p.Run(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, st.ExtractedClauses, 1)
	assert.Equal(t, []string{"Liability clause", vars.LifecycleQuery}, r.queries)
}
