package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surakshanet/internal/chat"
	"surakshanet/internal/inference"
	"surakshanet/internal/media"
	"surakshanet/internal/models"
	"surakshanet/internal/repository"
	"surakshanet/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(context.Context, inference.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.response, f.err
}

func (f *fakeGenerator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type echoStarter struct{}

func (echoStarter) StartChat(string) inference.Conversation { return &echoConversation{} }

type echoConversation struct{ n int }

func (c *echoConversation) Send(_ context.Context, msg string) (string, error) {
	c.n++
	return fmt.Sprintf("reply %d to %s", c.n, msg), nil
}

type memoryStore struct {
	records []*models.ReportRecord
}

func (m *memoryStore) SaveReport(_ context.Context, rec *models.ReportRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryStore) GetReport(_ context.Context, id string) (*models.ReportRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListReports(_ context.Context, limit, offset int) ([]*models.ReportRecord, error) {
	return m.records, nil
}

func (m *memoryStore) ListReportsByModule(_ context.Context, module string, _ int) ([]*models.ReportRecord, error) {
	out := []*models.ReportRecord{}
	for _, r := range m.records {
		if r.Module == module {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) AllReports(context.Context) ([]*models.ReportRecord, error) {
	return m.records, nil
}

func (m *memoryStore) Stats(context.Context) (*models.ReportStats, error) {
	stats := &models.ReportStats{Total: len(m.records), ByModule: map[string]int{}, ByAssessment: map[string]int{}}
	for _, r := range m.records {
		stats.ByModule[r.Module]++
		stats.ByAssessment[r.Assessment]++
	}
	return stats, nil
}

type testEnv struct {
	router *gin.Engine
	gen    *fakeGenerator
	store  *memoryStore
}

func newEnv(t *testing.T, configured bool) *testEnv {
	t.Helper()
	env := &testEnv{gen: &fakeGenerator{}, store: &memoryStore{}}

	var gen inference.Generator
	var starter inference.ChatStarter
	if configured {
		gen = env.gen
		starter = echoStarter{}
	}

	svc := service.New(gen, media.NewPolicies(media.MiB, media.MiB, media.MiB), zap.NewNop(), service.WithArchive(env.store))
	chats := chat.NewRegistry(starter, "instruction", time.Hour, zap.NewNop())
	env.router = gin.New()
	NewHandler(svc, chats, env.store, zap.NewNop()).RegisterRoutes(env.router)
	return env
}

func (e *testEnv) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

const fraudResponse = `{"assessment":"High Risk","explanation":"Unusual recipient pattern","confidence":1.4,"potentialRiskFactors":["large amount","new payee"]}`

func TestFraudAnalyze(t *testing.T) {
	env := newEnv(t, true)
	env.gen.response = fraudResponse

	w := env.do(http.MethodPost, "/api/v1/fraud/analyze", models.FraudAnalysisRequest{
		SenderID: "asha@upi", ReceiverID: "shop@upi", Amount: 25000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "High Risk", body["assessment"])
	assert.Equal(t, 1.0, body["confidence"])
	assert.Len(t, body["potentialRiskFactors"], 2)
	assert.NotEmpty(t, body["transactionId"])
	assert.Len(t, env.store.records, 1)
}

func TestFraudBadRequest(t *testing.T) {
	env := newEnv(t, true)

	w := env.do(http.MethodPost, "/api/v1/fraud/analyze", `{"senderId":"a"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, body := range []any{
		`{"senderId":"a"}`,
		models.FraudAnalysisRequest{SenderID: "a", ReceiverID: "b", Amount: -5},
		models.FraudAnalysisRequest{SenderID: "a", ReceiverID: "b", Amount: 0},
	} {
		w = env.do(http.MethodPost, "/api/v1/fraud/analyze", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "input", resp["kind"])
		assert.Equal(t, models.ModuleFraud, resp["module"])
		assert.NotContains(t, resp["error"], "Field validation")
	}
	assert.Zero(t, env.gen.count())
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		want     int
		kind     string
	}{
		{"contract violation", `{"assessment":"Maybe"}`, nil, http.StatusBadGateway, "contract"},
		{"malformed json", `not json`, nil, http.StatusBadGateway, "contract"},
		{"transport", "", fmt.Errorf("gemini API error: %w", fmt.Errorf("boom")), http.StatusBadGateway, "transport"},
		{"payload too large", "", inference.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "transport"},
		{"timeout", "", context.DeadlineExceeded, http.StatusGatewayTimeout, "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, true)
			env.gen.response, env.gen.err = tt.response, tt.err

			w := env.do(http.MethodPost, "/api/v1/phishing/analyze", models.PhishingAnalysisRequest{Content: "http://kyc-update.example"})
			assert.Equal(t, tt.want, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.kind, body["kind"])
			assert.Equal(t, models.ModulePhishing, body["module"])
			assert.NotContains(t, body["error"], "boom")
		})
	}
}

func TestNotConfiguredAnswers503(t *testing.T) {
	env := newEnv(t, false)

	w := env.do(http.MethodPost, "/api/v1/fraud/analyze", models.FraudAnalysisRequest{SenderID: "a", ReceiverID: "b", Amount: 1})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode(t, w)["error"], "GEMINI_API_KEY")

	w = env.do(http.MethodPost, "/api/v1/fraud/analyze", `{"amount":"lots"`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "configuration", decode(t, w)["kind"])

	w = env.do(http.MethodPost, "/api/v1/deepfake/analyze", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(http.MethodPost, "/api/v1/chat/send", models.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["inference_configured"])
}

func TestDeepfakeJSONUpload(t *testing.T) {
	env := newEnv(t, true)
	env.gen.response = `{"assessment":"Likely Authentic","confidence":0.8,"explanation":"consistent lighting","manipulationIndicators":[]}`

	w := env.do(http.MethodPost, "/api/v1/deepfake/analyze", models.MediaUploadRequest{
		FileName: "photo.png",
		MIMEType: "image/png",
		Data:     base64.StdEncoding.EncodeToString(pngBytes),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Likely Authentic", body["assessment"])
	assert.Equal(t, "photo.png", body["fileName"])
}

func multipartRequest(t *testing.T, path, fileName, mimeType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFacialMultipartUpload(t *testing.T) {
	env := newEnv(t, true)
	env.gen.response = `[{"caseId":"MP-9","name":"S. Rao","matchConfidence":0.4,"lastKnownLocation":"Delhi","details":"training record"}]`

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartRequest(t, "/api/v1/facial/search", "face.png", "image/png", pngBytes))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.FacialSearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "MP-9-0", result.Matches[0].ID)
}

func TestUploadRejections(t *testing.T) {
	env := newEnv(t, true)

	// 1 MiB ceiling in the test policies
	big := bytes.Repeat([]byte{0}, media.MiB+10)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartRequest(t, "/api/v1/voice/analyze", "call.mp3", "audio/mpeg", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = env.do(http.MethodPost, "/api/v1/surveillance/analyze", models.MediaUploadRequest{
		FileName: "clip.avi", MIMEType: "video/x-msvideo", Data: base64.StdEncoding.EncodeToString([]byte("RIFF")),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/v1/deepfake/analyze", models.MediaUploadRequest{
		FileName: "x.png", MIMEType: "image/png", Data: "%%%not-base64%%%",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, env.gen.count())
}

func TestPhishingHistoryAndFeedback(t *testing.T) {
	env := newEnv(t, true)
	env.gen.response = `{"assessment":"Phishing","confidence":0.9,"explanation":"lookalike","indicators":["typosquatting"],"recommendedActions":["report"]}`

	w := env.do(http.MethodPost, "/api/v1/phishing/analyze", models.PhishingAnalysisRequest{Content: "http://sbi-kyc.example", ContentType: "url"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = env.do(http.MethodPost, "/api/v1/phishing/history/"+id+"/feedback", models.PhishingFeedbackRequest{Verdict: "correct"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPost, "/api/v1/phishing/history/unknown/feedback", models.PhishingFeedbackRequest{Verdict: "correct"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/v1/phishing/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Entries []models.PhishingHistoryEntry `json:"entries"`
		Total   int                           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Equal(t, 1, history.Total)
	assert.Equal(t, models.FeedbackCorrect, history.Entries[0].Feedback)
	assert.Equal(t, "http://sbi-kyc.example", history.Entries[0].Content)
}

func TestChatFlow(t *testing.T) {
	env := newEnv(t, true)
	session := []string{SessionHeader, "officer-1"}

	w := env.do(http.MethodPost, "/api/v1/chat/init", nil, session...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "active", decode(t, w)["state"])

	w = env.do(http.MethodPost, "/api/v1/chat/send", models.ChatRequest{Message: "What is Section 420?"}, session...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "reply 1 to What is Section 420?", decode(t, w)["reply"])

	w = env.do(http.MethodPost, "/api/v1/chat/send", models.ChatRequest{Message: "And 66D?"}, session...)
	assert.Equal(t, "reply 2 to And 66D?", decode(t, w)["reply"])

	// a different session has its own conversation
	w = env.do(http.MethodPost, "/api/v1/chat/send", models.ChatRequest{Message: "hello"}, SessionHeader, "officer-2")
	assert.Equal(t, "reply 1 to hello", decode(t, w)["reply"])

	w = env.do(http.MethodGet, "/api/v1/chat/history", nil, session...)
	assert.Len(t, decode(t, w)["turns"], 4)

	w = env.do(http.MethodPost, "/api/v1/chat/reset", nil, session...)
	assert.Equal(t, "uninitialized", decode(t, w)["state"])

	w = env.do(http.MethodPost, "/api/v1/chat/send", models.ChatRequest{Message: "again"}, session...)
	assert.Equal(t, "reply 1 to again", decode(t, w)["reply"])

	w = env.do(http.MethodPost, "/api/v1/chat/send", models.ChatRequest{Message: "   "}, session...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func seedReports(env *testEnv) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env.store.records = []*models.ReportRecord{
		{ID: "a", Module: models.ModuleFraud, Assessment: "High Risk", Confidence: 0.9, Subject: "x -> y", Payload: `{"transactionId":"a"}`, CreatedAt: at},
		{ID: "b", Module: models.ModuleVoice, Assessment: "Likely Safe", Confidence: 0.1, Subject: "call.mp3", Payload: `{"id":"b"}`, CreatedAt: at},
	}
}

func TestReportEndpoints(t *testing.T) {
	env := newEnv(t, true)
	seedReports(env)

	w := env.do(http.MethodGet, "/api/v1/reports?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["total"])

	w = env.do(http.MethodGet, "/api/v1/reports?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/reports/module/voice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["total"])

	w = env.do(http.MethodGet, "/api/v1/reports/module/astrology", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/reports/a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"transactionId": "a"}, decode(t, w)["report"])

	w = env.do(http.MethodGet, "/api/v1/reports/zzz", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/v1/reports/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.ReportStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByModule[models.ModuleFraud])
}

func TestExports(t *testing.T) {
	env := newEnv(t, true)
	seedReports(env)

	w := env.do(http.MethodGet, "/api/v1/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "module", "assessment", "confidence", "subject", "created_at"}, rows[0])
	assert.Equal(t, []string{"a", "fraud", "High Risk", "0.90", "x -> y", "2026-01-02T03:04:05Z"}, rows[1])

	w = env.do(http.MethodGet, "/api/v1/export/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reports.json")
	var exported []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, map[string]any{"id": "b"}, exported[1]["report"])
}

func TestArchiveDisabled(t *testing.T) {
	svc := service.New(nil, media.DefaultPolicies(), zap.NewNop())
	chats := chat.NewRegistry(nil, "", 0, zap.NewNop())
	r := gin.New()
	NewHandler(svc, chats, nil, zap.NewNop()).RegisterRoutes(r)

	for _, path := range []string{"/api/v1/reports", "/api/v1/reports/stats", "/api/v1/export/csv"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, false, decode(t, w)["archive_enabled"])
}
