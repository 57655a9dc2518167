package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/facemock/internal/metrics"
	"github.com/example/facemock/internal/usecase"
)

const (
	// MaxUploadSize is the default cap on a recognition request body.
	MaxUploadSize = 10 << 20

	imageField = "image"

	RecognizeRoute   = "/recognize"
	PredictFileRoute = "/api/v1/face-recognition/predict/file"

	requestIDHeader = "X-Request-ID"
)

var errMissingImage = errors.New("image field is required")

// Detection mirrors one entry of the predict/file response of the real service.
type Detection struct {
	FaceID     int     `json:"face_id"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// PredictResponse mirrors the predict/file response of the real service.
type PredictResponse struct {
	Success    bool        `json:"success"`
	TotalFaces int         `json:"total_faces"`
	Detections []Detection `json:"detections"`
}

type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type handler struct {
	uc             *usecase.RecognitionUseCase
	maxUploadBytes int64
}

// RegisterRoutes wires the HTTP handlers to the Gin router. A non-positive
// maxUploadBytes falls back to MaxUploadSize.
func RegisterRoutes(router *gin.Engine, uc *usecase.RecognitionUseCase, maxUploadBytes int64) {
	if maxUploadBytes <= 0 {
		maxUploadBytes = MaxUploadSize
	}
	h := &handler{uc: uc, maxUploadBytes: maxUploadBytes}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": uc.Mode()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST(RecognizeRoute, h.recognize)
	router.POST(PredictFileRoute, h.predictFile)
	router.GET("/result/:id", h.getResult)
	router.GET("/stats", h.getStats)
}

func (h *handler) recognize(c *gin.Context) {
	outcome, ok := h.runRecognition(c, RecognizeRoute)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, outcome.Result)
}

func (h *handler) predictFile(c *gin.Context) {
	outcome, ok := h.runRecognition(c, PredictFileRoute)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, PredictResponse{
		Success:    true,
		TotalFaces: 1,
		Detections: []Detection{{
			FaceID:     0,
			Class:      outcome.Result.Label,
			Confidence: outcome.Result.Confidence,
		}},
	})
}

func (h *handler) runRecognition(c *gin.Context, route string) (usecase.Outcome, bool) {
	upload, err := h.readUpload(c)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.RejectedUploadsTotal.WithLabelValues("too_large").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return usecase.Outcome{}, false
		}
		metrics.RejectedUploadsTotal.WithLabelValues("missing_image").Inc()
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []validationDetail{{
			Loc:  []string{"body", imageField},
			Msg:  "field required",
			Type: "value_error.missing",
		}}})
		return usecase.Outcome{}, false
	}

	outcome := h.uc.Recognize(c.Request.Context(), upload)
	metrics.ObserveRecognition(string(h.uc.Mode()), route, outcome.Result.Confidence)
	c.Header(requestIDHeader, outcome.RequestID)
	return outcome, true
}

// readUpload extracts the image part. A part without a filename arrives as a
// plain form value and is accepted with an empty filename.
func (h *handler) readUpload(c *gin.Context) (usecase.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return usecase.Upload{}, err
	}
	form := c.Request.MultipartForm
	defer form.RemoveAll() //nolint:errcheck

	if files := form.File[imageField]; len(files) > 0 {
		return readFilePart(files[0])
	}
	if values := form.Value[imageField]; len(values) > 0 {
		return usecase.Upload{Data: []byte(values[0])}, nil
	}
	return usecase.Upload{}, errMissingImage
}

func readFilePart(file *multipart.FileHeader) (usecase.Upload, error) {
	src, err := file.Open()
	if err != nil {
		return usecase.Upload{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return usecase.Upload{}, err
	}
	return usecase.Upload{
		Filename:     file.Filename,
		DeclaredType: file.Header.Get("Content-Type"),
		Data:         data,
	}, nil
}

func (h *handler) getResult(c *gin.Context) {
	requestID := c.Param("id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	log, err := h.uc.GetResult(c.Request.Context(), requestID)
	switch {
	case errors.Is(err, usecase.ErrHistoryDisabled), errors.Is(err, usecase.ErrResultNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load result"})
		return
	}

	c.JSON(http.StatusOK, log)
}

func (h *handler) getStats(c *gin.Context) {
	summary, err := h.uc.GetSummary(c.Request.Context())
	switch {
	case errors.Is(err, usecase.ErrHistoryDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate statistics"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
