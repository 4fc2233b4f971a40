package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"contract-intel/vars"

	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markerSplitter 按 "||" 切分，代替需要 embedding 的语义切分
type markerSplitter struct{}

func (markerSplitter) Transform(_ context.Context, src []*schema.Document, _ ...document.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, doc := range src {
		for _, part := range strings.Split(doc.Content, "||") {
			meta := make(map[string]any, len(doc.MetaData))
			for k, v := range doc.MetaData {
				meta[k] = v
			}
			out = append(out, &schema.Document{Content: part, MetaData: meta})
		}
	}
	return out, nil
}

type fakeStore struct {
	calls  *[]string
	name   string
	stored []*schema.Document
	err    error
}

func (f *fakeStore) Store(_ context.Context, chunks []*schema.Document) error {
	*f.calls = append(*f.calls, f.name+".store")
	if f.err != nil {
		return f.err
	}
	f.stored = chunks
	return nil
}

func (f *fakeStore) DeleteByContractID(_ context.Context, id string) error {
	*f.calls = append(*f.calls, f.name+".delete:"+id)
	return nil
}

func newIngestor(t *testing.T, stores ...ChunkStore) *Ingestor {
	t.Helper()
	i, err := New(context.Background(), markerSplitter{}, nil, stores...)
	require.NoError(t, err)
	return i
}

func TestIngestText(t *testing.T) {
	var calls []string
	vec := &fakeStore{calls: &calls, name: "milvus"}
	kw := &fakeStore{calls: &calls, name: "es"}
	i := newIngestor(t, vec, kw)

	n, err := i.Ingest(context.Background(), "c1", "msa.txt",
		strings.NewReader("Termination.\x00 Either party may terminate.||  ||Payment\n\nnet 30."))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{"milvus.delete:c1", "milvus.store", "es.delete:c1", "es.store"}, calls)
	require.Len(t, vec.stored, 2)
	assert.Equal(t, "c1_0", vec.stored[0].ID)
	assert.Equal(t, "Termination. Either party may terminate.", vec.stored[0].Content)
	assert.Equal(t, "Payment net 30.", vec.stored[1].Content)
	for _, chunk := range vec.stored {
		assert.Equal(t, "c1", chunk.MetaData[vars.MetaContractID])
		assert.Equal(t, "msa.txt", chunk.MetaData[vars.MetaSource])
		assert.Equal(t, chunk.ID, chunk.MetaData[vars.MetaChunkID])
	}
}

func TestIngestUnsupportedType(t *testing.T) {
	i := newIngestor(t)
	_, err := i.Ingest(context.Background(), "c1", "msa.docx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, Supported("msa.docx"))
	assert.True(t, Supported("MSA.PDF"))
	assert.True(t, Supported("notes.txt"))
}

func TestIngestEmptyDocument(t *testing.T) {
	i := newIngestor(t)
	_, err := i.Ingest(context.Background(), "c1", "blank.txt", strings.NewReader(" \n\t "))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestIngestStoreFailure(t *testing.T) {
	var calls []string
	vec := &fakeStore{calls: &calls, name: "milvus", err: errors.New("milvus down")}
	kw := &fakeStore{calls: &calls, name: "es"}
	i := newIngestor(t, vec, kw)

	_, err := i.Ingest(context.Background(), "c1", "msa.txt", strings.NewReader("text"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "milvus down")
	assert.Empty(t, kw.stored)
}

func TestRemove(t *testing.T) {
	var calls []string
	i := newIngestor(t, &fakeStore{calls: &calls, name: "milvus"}, &fakeStore{calls: &calls, name: "es"})
	require.NoError(t, i.Remove(context.Background(), "c9"))
	assert.Equal(t, []string{"milvus.delete:c9", "es.delete:c9"}, calls)
}
