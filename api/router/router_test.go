package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contract-intel/api/handler"
	"contract-intel/logic/analysis"
	"contract-intel/logic/extract"
	"contract-intel/service"
	"contract-intel/storage/blob"
	"contract-intel/storage/postgres"
	"contract-intel/vars"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoModel struct{ reply string }

func (m echoModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.reply, nil), nil
}

type noDocs struct{}

func (noDocs) Retrieve(_ context.Context, _ string, _ int, _ string) ([]*schema.Document, error) {
	return nil, nil
}

type nopIngester struct{}

func (nopIngester) Ingest(_ context.Context, _, _ string, _ io.Reader) (int, error) { return 0, nil }
func (nopIngester) Remove(_ context.Context, _ string) error                       { return nil }

type recordQueue struct{ ids []string }

func (q *recordQueue) Enqueue(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type testServer struct {
	engine *gin.Engine
	repo   *postgres.ContractRepo
	queue  *recordQueue
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	db, err := postgres.InitDB(vars.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	files, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	repo := postgres.NewContractRepo(db)
	queue := &recordQueue{}
	an := analysis.New(noDocs{}, extract.New(echoModel{reply: `{"rewritten_text":"Better clause.","explanation":"tightened"}`}, nil), nil)
	svc := service.NewContractService(repo, files, nopIngester{}, an, queue, nil)
	return &testServer{
		engine: New(handler.NewContractHandler(svc, 1<<20, nil), nil),
		repo:   repo,
		queue:  queue,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) upload(t *testing.T, name, content string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = part.Write([]byte(content))
	require.NoError(t, mw.Close())
	return s.do(t, http.MethodPost, "/api/v1/contracts/upload", &buf, mw.FormDataContentType())
}

func (s *testServer) uploadedID(t *testing.T) string {
	t.Helper()
	w, env := s.upload(t, "msa.txt", "Either party may terminate.")
	require.Equal(t, http.StatusAccepted, w.Code)
	var data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, postgres.StatusProcessing, data.Status)
	return data.ID
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w, env := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, env.Code)
}

func TestUploadFlow(t *testing.T) {
	s := newServer(t)
	id := s.uploadedID(t)
	assert.Equal(t, []string{id}, s.queue.ids)

	w, env := s.do(t, http.MethodGet, "/api/v1/contracts/"+id, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"file_name":"msa.txt"`)

	w, env = s.do(t, http.MethodGet, "/api/v1/contracts?skip=0&limit=10", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), id)

	w, _ = s.do(t, http.MethodPost, "/api/v1/contracts/"+id+"/analyze", nil, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, s.queue.ids, 2)
}

func TestUploadRejectsUnsupported(t *testing.T) {
	s := newServer(t)
	w, env := s.upload(t, "msa.docx", "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, -1, env.Code)
	assert.Empty(t, s.queue.ids)

	w, _ = s.do(t, http.MethodPost, "/api/v1/contracts/upload", strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFound(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/contracts/missing", ""},
		{http.MethodDelete, "/api/v1/contracts/missing", ""},
		{http.MethodGet, "/api/v1/contracts/missing/export", ""},
		{http.MethodPost, "/api/v1/contracts/missing/analyze", ""},
		{http.MethodPost, "/api/v1/ask/missing", `{"question":"notice?"}`},
		{http.MethodPost, "/api/v1/compare", `{"contract_id_1":"a","contract_id_2":"b"}`},
		{http.MethodPatch, "/api/v1/alerts/9", `{"status":"resolved"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w, env := s.do(t, tt.method, tt.path, strings.NewReader(tt.body), "application/json")
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, -1, env.Code)
		})
	}
}

func TestBadRequests(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/ask/global", `{}`},
		{http.MethodPost, "/api/v1/compare", `{"contract_id_1":"a"}`},
		{http.MethodPost, "/api/v1/rewrite", `{"clause_text":"x"}`},
		{http.MethodPatch, "/api/v1/alerts/abc", `{"status":"sent"}`},
		{http.MethodPatch, "/api/v1/alerts/1", `{"status":"archived"}`},
		{http.MethodGet, "/api/v1/contracts?limit=ten", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w, _ := s.do(t, tt.method, tt.path, strings.NewReader(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAskGlobalNoDocs(t *testing.T) {
	s := newServer(t)
	w, env := s.do(t, http.MethodPost, "/api/v1/ask/global", strings.NewReader(`{"question":"What is the notice period?"}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "could not find any relevant information")
}

func TestRewrite(t *testing.T) {
	s := newServer(t)
	w, env := s.do(t, http.MethodPost, "/api/v1/rewrite",
		strings.NewReader(`{"clause_text":"Vendor liable for everything.","instruction":"cap liability"}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Better clause.")
}

func TestExportAndDelete(t *testing.T) {
	s := newServer(t)
	id := s.uploadedID(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/contracts/"+id+"/export", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "msa_analysis.xlsx")
	assert.NotZero(t, w.Body.Len())

	w, _ = s.do(t, http.MethodDelete, "/api/v1/contracts/"+id, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/contracts/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	s := newServer(t)
	s.uploadedID(t)
	w, env := s.do(t, http.MethodGet, "/api/v1/analytics/stats", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total_contracts":1`)
}
