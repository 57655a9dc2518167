package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/facemock/internal/recognition"
	"github.com/example/facemock/internal/usecase"
)

type memoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value.(string)
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func newTestRouter(t *testing.T, rec recognition.Recognizer, maxUpload int64, opts ...usecase.Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	uc := usecase.NewRecognitionUseCase(rec, zap.NewNop(), opts...)
	RegisterRoutes(router, uc, maxUpload)
	return router
}

func postImage(t *testing.T, router *gin.Engine, route, disposition string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := buildMultipartBody(t, disposition, "image/jpeg", payload)

	req := httptest.NewRequest(http.MethodPost, route, body)
	req.Header.Set("Content-Type", contentType)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeResult(t *testing.T, resp *httptest.ResponseRecorder) recognition.Result {
	t.Helper()
	var result recognition.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response %q: %v", resp.Body.String(), err)
	}
	return result
}

func TestRecognizeFixedWithDigits(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0)

	resp := postImage(t, router, RecognizeRoute, `form-data; name="image"; filename="student12345.jpg"`, []byte("jpeg"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if resp.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	result := decodeResult(t, resp)
	if result.Label != "12345_MockUser" || result.Confidence != 0.93 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRecognizeFixedWithoutFilename(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0)

	for _, disposition := range []string{
		`form-data; name="image"`,
		`form-data; name="image"; filename="snapshot.jpg"`,
	} {
		resp := postImage(t, router, RecognizeRoute, disposition, []byte("jpeg"))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", disposition, http.StatusOK, resp.Code)
		}
		first := decodeResult(t, resp)
		if first.Label != "000000000_MockUser" || first.Confidence != 0.93 {
			t.Fatalf("%s: unexpected result: %+v", disposition, first)
		}

		again := decodeResult(t, postImage(t, router, RecognizeRoute, disposition, []byte("jpeg")))
		if again != first {
			t.Fatalf("expected identical responses, got %+v and %+v", first, again)
		}
	}
}

func TestRecognizeRandomUsesFilenameDigits(t *testing.T) {
	router := newTestRouter(t, recognition.NewRandom(rand.New(rand.NewPCG(5, 6))), 0)

	resp := postImage(t, router, RecognizeRoute, `form-data; name="image"; filename="img_007.png"`, []byte("png"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}

	result := decodeResult(t, resp)
	if result.Identifier() != "007" {
		t.Fatalf("unexpected identifier in %q", result.Label)
	}
	if len(strings.Fields(result.Name())) != 3 {
		t.Fatalf("expected three name tokens in %q", result.Name())
	}
	if result.Confidence < recognition.MinConfidence || result.Confidence > recognition.MaxConfidence {
		t.Fatalf("confidence out of range: %v", result.Confidence)
	}
}

func TestRecognizeRejectsMissingImage(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0)

	resp := postImage(t, router, RecognizeRoute, `form-data; name="photo"; filename="1.jpg"`, []byte("jpeg"))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"value_error.missing"`) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestRecognizeRejectsNonMultipartBody(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0)

	req := httptest.NewRequest(http.MethodPost, RecognizeRoute, strings.NewReader(`{"image":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, resp.Code)
	}
}

func TestRecognizeRejectsLargeUpload(t *testing.T) {
	const limit = 1024
	router := newTestRouter(t, recognition.NewFixed(), limit)

	resp := postImage(t, router, RecognizeRoute, `form-data; name="image"; filename="upload"`, bytes.Repeat([]byte("a"), limit+1))

	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status %d, got %d", http.StatusRequestEntityTooLarge, resp.Code)
	}
}

func TestPredictFileShape(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0)

	resp := postImage(t, router, PredictFileRoute, `form-data; name="image"; filename="110122050.jpg"`, []byte("jpeg"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}

	var body PredictResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success || body.TotalFaces != 1 || len(body.Detections) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Detections[0].Class != "110122050_MockUser" || body.Detections[0].Confidence != 0.93 {
		t.Fatalf("unexpected detection: %+v", body.Detections[0])
	}
}

func TestResultLookupWithCache(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0, usecase.WithCache(&memoryCache{}, time.Minute))

	resp := postImage(t, router, RecognizeRoute, `form-data; name="image"; filename="42.jpg"`, []byte("jpeg"))
	requestID := resp.Header().Get(requestIDHeader)
	if requestID == "" {
		t.Fatal("expected request id header")
	}

	lookup := httptest.NewRecorder()
	router.ServeHTTP(lookup, httptest.NewRequest(http.MethodGet, "/result/"+requestID, nil))
	if lookup.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, lookup.Code)
	}
	if !strings.Contains(lookup.Body.String(), `"label":"42_MockUser"`) {
		t.Fatalf("unexpected body: %s", lookup.Body.String())
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/result/unknown", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, missing.Code)
	}
}

func TestHistoryRoutesWhenDisabled(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0)

	for _, path := range []string{"/result/abc", "/stats"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusNotFound, resp.Code)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, recognition.NewFixed(), 0)

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	if health.Code != http.StatusOK || !strings.Contains(health.Body.String(), `"mode":"fixed"`) {
		t.Fatalf("unexpected health response: %d %s", health.Code, health.Body.String())
	}

	postImage(t, router, RecognizeRoute, `form-data; name="image"; filename="1.jpg"`, []byte("jpeg"))

	scrape := httptest.NewRecorder()
	router.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if scrape.Code != http.StatusOK || !strings.Contains(scrape.Body.String(), "facemock_recognition_requests_total") {
		t.Fatalf("unexpected metrics response: %d", scrape.Code)
	}
}

func buildMultipartBody(t *testing.T, disposition, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", disposition)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	return body, writer.FormDataContentType()
}
