package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/resumex/internal/config"
	"github.com/dgallion1/resumex/internal/pipeline"
	"github.com/dgallion1/resumex/internal/recordstore"
	"github.com/dgallion1/resumex/internal/schema"
)

const testKey = "test-key"

const completeResume = `# 姓名

张三

# 求职意向

后端开发

# 个人信息

- 性别：男
- 血型：A

# 教育背景

- 学校：北京大学

# 技能

- 编程语言：Go
- 没有分隔符
`

type fakeStore struct {
	mu      sync.Mutex
	records map[string]recordstore.StoredRecord
}

func (f *fakeStore) PutRecord(_ context.Context, rec recordstore.StoredRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.DocID] = rec
	return nil
}

func (f *fakeStore) GetRecord(_ context.Context, id string) (*recordstore.StoredRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) DeleteRecord(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *fakeStore) ListRecords(_ context.Context, _ int) ([]recordstore.StoredRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordstore.StoredRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

type testEnv struct {
	srv   *httptest.Server
	store *fakeStore
}

func newTestEnv(t *testing.T, strict bool, withStore bool) *testEnv {
	t.Helper()
	cfg := config.Config{
		APIKey:           testKey,
		WorkerCount:      2,
		MaxQueueSize:     10,
		MaxUploadBytes:   1 << 20,
		JobTTL:           time.Hour,
		StrictValidation: strict,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{}
	var store pipeline.RecordStore
	if withStore {
		env.store = &fakeStore{records: map[string]recordstore.StoredRecord{}}
		store = env.store
	}
	orch := pipeline.NewOrchestrator(cfg, schema.Default(), store, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	env.srv = httptest.NewServer(NewServer(orch, log, cfg))
	t.Cleanup(env.srv.Close)
	return env
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) upload(t *testing.T, path, field string, files map[string]string) *http.Response {
	body, ct := multipartBody(t, field, files)
	return e.do(t, http.MethodPost, path, body, ct)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(b, &out), string(b))
	return out
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t, true, false)
	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, true, false)

	resp, err := http.Get(env.srv.URL + "/api/stats/parse")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/stats/parse", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestParse_Sync(t *testing.T) {
	env := newTestEnv(t, true, false)
	resp := env.upload(t, "/api/parse", "file", map[string]string{"cv.md": completeResume})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, true, body["valid"])
	rec := body["record"].(map[string]any)
	assert.Equal(t, "张三", rec["name"])
	info := rec["personal_info"].(map[string]any)
	assert.Equal(t, "男", info["gender"])
	assert.NotContains(t, info, "血型")
	assert.Len(t, body["warnings"], 1)
	assert.Len(t, body["found"], 5)
	assert.Empty(t, body["missing_fields"])
}

func TestParse_SyncStrictRejectsIncomplete(t *testing.T) {
	env := newTestEnv(t, true, false)
	resp := env.upload(t, "/api/parse", "file", map[string]string{"cv.md": "# 姓名\n\n张三\n"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["missing_fields"], "skills")
	assert.NotEmpty(t, body["error"])
}

func TestParse_SyncLenientReturnsIncomplete(t *testing.T) {
	env := newTestEnv(t, false, false)
	resp := env.upload(t, "/api/parse", "file", map[string]string{"cv.md": "# 姓名\n\n张三\n"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["missing_fields"], "education")
}

func TestParse_SyncYAML(t *testing.T) {
	env := newTestEnv(t, true, false)
	resp := env.upload(t, "/api/parse?format=yaml", "file", map[string]string{"cv.md": completeResume})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cv.yaml")

	var rec map[string]any
	b, _ := io.ReadAll(resp.Body)
	require.NoError(t, yaml.Unmarshal(b, &rec))
	assert.Equal(t, "张三", rec["name"])
}

func TestParse_BadRequests(t *testing.T) {
	env := newTestEnv(t, true, false)

	resp := env.upload(t, "/api/parse", "file", map[string]string{"cv.pdf": "%PDF"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.upload(t, "/api/parse", "other", map[string]string{"cv.md": "# 姓名"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.upload(t, "/api/parse?format=pdf", "file", map[string]string{"cv.md": "# 姓名"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func waitForJob(t *testing.T, env *testEnv, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp := env.do(t, http.MethodGet, "/api/jobs/"+jobID, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		snap := decode(t, resp)
		if pipeline.JobStatus(snap["status"].(string)).Done() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return nil
}

func TestJobs_SubmitPollExport(t *testing.T) {
	env := newTestEnv(t, true, true)

	resp := env.upload(t, "/api/jobs", "file", map[string]string{"cv.md": completeResume})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decode(t, resp)
	jobID := body["job_id"].(string)
	assert.Equal(t, "/api/jobs/"+jobID, body["poll_url"])

	snap := waitForJob(t, env, jobID)
	assert.Equal(t, "completed", snap["status"])
	assert.Equal(t, "张三", snap["record"].(map[string]any)["name"])
	docID := snap["doc_id"].(string)
	require.Len(t, docID, 16)

	// JSON export.
	resp = env.do(t, http.MethodGet, "/api/jobs/"+jobID+"/record", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "张三", decode(t, resp)["name"])

	// XLSX export.
	resp = env.do(t, http.MethodGet, "/api/jobs/"+jobID+"/record?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Resumes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cv.md", rows[1][0])

	// The record reached the store and can be listed and deleted.
	resp = env.do(t, http.MethodGet, "/api/records", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode(t, resp)["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, docID, records[0].(map[string]any)["doc_id"])

	resp = env.do(t, http.MethodDelete, "/api/records/"+docID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, env.store.records)
}

func TestJobs_InvalidJob(t *testing.T) {
	env := newTestEnv(t, true, true)
	resp := env.upload(t, "/api/jobs", "file", map[string]string{"cv.md": "# 姓名\n\n张三\n"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	snap := waitForJob(t, env, decode(t, resp)["job_id"].(string))
	assert.Equal(t, "invalid", snap["status"])
	assert.Contains(t, snap["missing_fields"], "job_intention")
	assert.Empty(t, env.store.records)
}

func TestJobs_Batch(t *testing.T) {
	env := newTestEnv(t, true, false)
	resp := env.upload(t, "/api/jobs/batch", "files", map[string]string{
		"a.md":  completeResume,
		"b.txt": "plain",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	jobs := decode(t, resp)["jobs"].([]any)
	require.Len(t, jobs, 2)
	var queued, rejected int
	for _, j := range jobs {
		m := j.(map[string]any)
		if _, ok := m["error"]; ok {
			rejected++
			assert.Equal(t, "b.txt", m["filename"])
			continue
		}
		queued++
		waitForJob(t, env, m["job_id"].(string))
	}
	assert.Equal(t, 1, queued)
	assert.Equal(t, 1, rejected)
}

func TestJobs_NotFound(t *testing.T) {
	env := newTestEnv(t, true, false)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/jobs/nope", nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/jobs/nope/record", nil, "").StatusCode)
}

func TestRecords_NoStore(t *testing.T) {
	env := newTestEnv(t, true, false)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/records", nil, "").StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodDelete, "/api/records/x", nil, "").StatusCode)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, true, false)
	env.upload(t, "/api/parse", "file", map[string]string{"cv.md": completeResume})

	resp := env.do(t, http.MethodGet, "/api/stats/parse", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode(t, resp)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["count"])
	assert.EqualValues(t, 1, stats["warnings"])
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"cv.md":             "cv.md",
		"../../etc/cv.md":   "cv.md",
		`C:\Users\me\cv.md`: "cv.md",
		"":                  "unnamed",
		"a..b.md":           "a_b.md",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
