package chat

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"contract-intel/config"
	"contract-intel/pkg/logger"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawEmbedder struct{ out [][]float64 }

func (r rawEmbedder) EmbedStrings(_ context.Context, _ []string, _ ...embedding.Option) ([][]float64, error) {
	return r.out, nil
}

func TestCleanEmbedder(t *testing.T) {
	e := NewCleanEmbedder(rawEmbedder{out: [][]float64{{1, math.NaN()}, {math.Inf(1), 0.5}}}, nil)
	vecs, err := e.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 0.5}}, vecs)
}

func TestCleanEmbedderLogsContract(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	e := NewCleanEmbedder(rawEmbedder{out: [][]float64{{0.1}, {math.NaN()}}}, log)

	ctx := logger.WithContractID(context.Background(), "c42")
	_, err := e.EmbedStrings(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "embedding.non_finite")
	assert.Contains(t, buf.String(), "contract_id=c42")
}

func TestCleanEmbedderQuietWhenFinite(t *testing.T) {
	var buf bytes.Buffer
	e := NewCleanEmbedder(rawEmbedder{out: [][]float64{{0.1, 0.2}}}, slog.New(slog.NewTextHandler(&buf, nil)))
	_, err := e.EmbedStrings(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.LLMConfig{Provider: "bedrock"})
	assert.Error(t, err)
}

func TestCallOptions(t *testing.T) {
	assert.Len(t, CallOptions(config.LLMConfig{Temperature: 0.1}), 1)
}
