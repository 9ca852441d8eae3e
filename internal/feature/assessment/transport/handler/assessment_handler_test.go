package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"before_you_sign/internal/api"
	"before_you_sign/internal/feature/assessment/domain"
	"before_you_sign/internal/feature/assessment/domain/entity"
	"before_you_sign/internal/feature/assessment/usecase"
	convusecase "before_you_sign/internal/feature/conversion/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockAssessmentUsecase はAssessmentUsecaseのモック実装です。
type mockAssessmentUsecase struct {
	AssessFunc func(ctx context.Context, in usecase.Input, n usecase.Notifier) (*entity.Assessment, error)
	GetFunc    func(ctx context.Context, id string) (*entity.Assessment, error)
	ListFunc   func(ctx context.Context, limit int) ([]entity.Assessment, error)
	gotInput   usecase.Input
}

func (m *mockAssessmentUsecase) Assess(ctx context.Context, in usecase.Input, n usecase.Notifier) (*entity.Assessment, error) {
	m.gotInput = in
	if m.AssessFunc != nil {
		return m.AssessFunc(ctx, in, n)
	}
	return sampleAssessment(), nil
}

func (m *mockAssessmentUsecase) Get(ctx context.Context, id string) (*entity.Assessment, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockAssessmentUsecase) List(ctx context.Context, limit int) ([]entity.Assessment, error) {
	return m.ListFunc(ctx, limit)
}

func sampleAssessment() *entity.Assessment {
	return &entity.Assessment{
		ID:     "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Digest: "d",
		Source: "text",
		Metadata: entity.Metadata{
			ServiceName:      "Acme",
			ServiceNature:    "a web store for gardening",
			DocumentType:     "Terms of Service",
			DocumentLanguage: "English",
		},
		Summary:   entity.Summary{Score: entity.GradeB, Comment: "Standard terms with a few limits."},
		Reasoning: "1. Nothing unusual.",
		CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func setupRouter(uc AssessmentUsecase, maxBytes int64) *gin.Engine {
	h := NewAssessmentHandler(uc, maxBytes)
	r := gin.New()
	r.POST("/v1/assessments", h.Create)
	r.POST("/v1/assessments/stream", h.Stream)
	r.GET("/v1/assessments", h.List)
	r.GET("/v1/assessments/:id", h.Get)
	return r
}

func formRequest(t *testing.T, path string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAssessmentHandler_CreateJSON(t *testing.T) {
	t.Parallel()

	uc := &mockAssessmentUsecase{}
	r := setupRouter(uc, 1024)

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments", strings.NewReader(`{"text":"You agree.","force":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, usecase.Input{Text: "You agree.", Force: true}, uc.gotInput)

	var resp api.AssessmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "B", resp.Summary.Score)
	assert.Equal(t, "Reasonable limitations to keep in mind", resp.Summary.ScoreDescription)
	assert.Equal(t, "Acme", resp.Metadata.ServiceName)
	assert.Equal(t, "1. Nothing unusual.", resp.Details)
}

func TestAssessmentHandler_CreateMultipart(t *testing.T) {
	t.Parallel()

	uc := &mockAssessmentUsecase{}
	r := setupRouter(uc, 1024)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, formRequest(t, "/v1/assessments", map[string]string{"force": "true"}, "tos.pdf", []byte("%PDF")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tos.pdf", uc.gotInput.Filename)
	assert.Equal(t, []byte("%PDF"), uc.gotInput.File)
	assert.True(t, uc.gotInput.Force)
	assert.Empty(t, uc.gotInput.Text)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, formRequest(t, "/v1/assessments", map[string]string{"text": "pasted"}, "", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pasted", uc.gotInput.Text)
	assert.Nil(t, uc.gotInput.File)
}

func TestAssessmentHandler_CreateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"ambiguous", domain.ErrAmbiguousInput, http.StatusBadRequest, "Please clear the text if you want to replace it"},
		{"empty", domain.ErrEmptyDocument, http.StatusBadRequest, "Please paste a document or upload a file"},
		{"unsupported file", fmt.Errorf("%w: x", convusecase.ErrUnsupportedFormat), http.StatusUnsupportedMediaType, "Couldn't read the file (a.bin)"},
		{"corrupt file", fmt.Errorf("%w: x", convusecase.ErrCorruptFile), http.StatusUnprocessableEntity, "Couldn't read the file (a.bin)"},
		{"malformed output", fmt.Errorf("summary: %w", domain.ErrMalformedOutput), http.StatusBadGateway, "The assistant returned an unexpected answer, please try again"},
		{"circuit open", gobreaker.ErrOpenState, http.StatusServiceUnavailable, "The assistant is temporarily unavailable, please try again later"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "The assessment took too long, please try again"},
		{"upstream", errors.New("503 overloaded"), http.StatusBadGateway, "The assessment failed, please try again later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc := &mockAssessmentUsecase{AssessFunc: func(context.Context, usecase.Input, usecase.Notifier) (*entity.Assessment, error) {
				return nil, tt.err
			}}
			r := setupRouter(uc, 1024)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, formRequest(t, "/v1/assessments", nil, "a.bin", []byte("x")))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestAssessmentHandler_CreateBadRequests(t *testing.T) {
	t.Parallel()

	uc := &mockAssessmentUsecase{}
	r := setupRouter(uc, 4)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/assessments", strings.NewReader(`{"text":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, formRequest(t, "/v1/assessments", nil, "big.pdf", []byte("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// TestAssessmentHandler_Stream は進捗・警告・結果がSSEイベントとして送られることを検証します。
func TestAssessmentHandler_Stream(t *testing.T) {
	t.Parallel()

	uc := &mockAssessmentUsecase{AssessFunc: func(_ context.Context, _ usecase.Input, n usecase.Notifier) (*entity.Assessment, error) {
		n.Progress(usecase.StepStarting)
		n.Warn("Temporary error, will retry. (503)")
		n.Progress(usecase.StepSummarizing)
		return sampleAssessment(), nil
	}}
	r := setupRouter(uc, 1024)

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments/stream", strings.NewReader(`{"text":"terms"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"), w.Header().Get("Content-Type"))

	body := w.Body.String()
	iStart := strings.Index(body, `{"step":"start"}`)
	iWarn := strings.Index(body, `Temporary error, will retry. (503)`)
	iSummarize := strings.Index(body, `{"step":"summarize"}`)
	iResult := strings.Index(body, "event:result")
	assert.True(t, iStart >= 0 && iStart < iWarn && iWarn < iSummarize && iSummarize < iResult, body)
	assert.Contains(t, body, "event:warning")
	assert.Contains(t, body, `"score":"B"`)
}

func TestAssessmentHandler_StreamError(t *testing.T) {
	t.Parallel()

	uc := &mockAssessmentUsecase{AssessFunc: func(context.Context, usecase.Input, usecase.Notifier) (*entity.Assessment, error) {
		return nil, domain.ErrEmptyDocument
	}}
	r := setupRouter(uc, 1024)

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments/stream", strings.NewReader(`{"text":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "event:error")
	assert.Contains(t, w.Body.String(), "Please paste a document or upload a file")
	assert.NotContains(t, w.Body.String(), "event:result")
}

func TestAssessmentHandler_Get(t *testing.T) {
	t.Parallel()

	uc := &mockAssessmentUsecase{GetFunc: func(_ context.Context, id string) (*entity.Assessment, error) {
		if id == sampleAssessment().ID {
			return sampleAssessment(), nil
		}
		return nil, domain.ErrNotFound
	}}
	r := setupRouter(uc, 1024)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/assessments/"+sampleAssessment().ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.AssessmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sampleAssessment().ID, resp.ID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/assessments/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssessmentHandler_List(t *testing.T) {
	t.Parallel()

	var gotLimit int
	uc := &mockAssessmentUsecase{ListFunc: func(_ context.Context, limit int) ([]entity.Assessment, error) {
		gotLimit = limit
		return []entity.Assessment{*sampleAssessment(), *sampleAssessment()}, nil
	}}
	r := setupRouter(uc, 1024)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/assessments?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, gotLimit)

	var resp api.AssessmentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
}
