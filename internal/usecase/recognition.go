package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/facemock/internal/logging"
	"github.com/example/facemock/internal/metrics"
	"github.com/example/facemock/internal/recognition"
	"github.com/example/facemock/internal/repository"
	"github.com/example/facemock/internal/retry"
)

const (
	defaultResultTTL   = 10 * time.Minute
	defaultContentType = "application/octet-stream"
)

var (
	// ErrHistoryDisabled is returned by lookups when no store is configured.
	ErrHistoryDisabled = errors.New("recognition history is disabled")
	// ErrResultNotFound is returned when no stored result matches a request id.
	ErrResultNotFound = errors.New("recognition result not found")
)

// Repository defines the persistence operations needed by the use case.
type Repository interface {
	SaveLog(ctx context.Context, log *repository.RecognitionLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.RecognitionLog, error)
	AggregateMetrics(ctx context.Context) (*repository.Aggregation, error)
}

// Upload is the request-scoped image reference handed over by the transport.
type Upload struct {
	Filename     string
	DeclaredType string
	Data         []byte
}

// Outcome is what a recognition call produced.
type Outcome struct {
	RequestID string
	Result    recognition.Result
}

// RecognitionUseCase fabricates results and, when stores are configured,
// keeps a best-effort history of them.
type RecognitionUseCase struct {
	recognizer recognition.Recognizer
	repo       Repository
	cache      Cache
	logger     *zap.Logger
	policy     retry.Policy
	resultTTL  time.Duration
	now        func() time.Time
}

// Option configures a RecognitionUseCase.
type Option func(*RecognitionUseCase)

// WithRepository enables the persistent recognition log.
func WithRepository(repo Repository) Option {
	return func(uc *RecognitionUseCase) { uc.repo = repo }
}

// WithCache enables the Redis result cache with the given entry lifetime.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(uc *RecognitionUseCase) {
		uc.cache = cache
		if ttl > 0 {
			uc.resultTTL = ttl
		}
	}
}

// WithRetryPolicy overrides the retry policy used for cache operations.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(uc *RecognitionUseCase) { uc.policy = policy }
}

// NewRecognitionUseCase constructs a new use case instance.
func NewRecognitionUseCase(recognizer recognition.Recognizer, logger *zap.Logger, opts ...Option) *RecognitionUseCase {
	uc := &RecognitionUseCase{
		recognizer: recognizer,
		logger:     logger.Named("recognition_usecase"),
		policy:     retry.DefaultPolicy,
		resultTTL:  defaultResultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Mode reports which recognizer variant is serving requests.
func (uc *RecognitionUseCase) Mode() recognition.Mode {
	return uc.recognizer.Mode()
}

// HistoryEnabled reports whether results are being recorded.
func (uc *RecognitionUseCase) HistoryEnabled() bool {
	return uc.repo != nil || uc.cache != nil
}

// Recognize fabricates a result for the upload. It cannot fail: history
// writes are attempted after the result exists and their errors are only logged.
func (uc *RecognitionUseCase) Recognize(ctx context.Context, upload Upload) Outcome {
	requestID := uuid.NewString()
	result := uc.recognizer.Recognize(upload.Filename)

	opLogger := logging.WithOperation(uc.logger, "usecase.recognize", requestID)
	opLogger.Debug("fabricated recognition result",
		zap.String("filename", upload.Filename),
		zap.String("label", result.Label),
		zap.Float64("confidence", result.Confidence),
	)

	if uc.HistoryEnabled() {
		uc.record(ctx, requestID, upload, result, opLogger)
	}

	return Outcome{RequestID: requestID, Result: result}
}

func (uc *RecognitionUseCase) record(ctx context.Context, requestID string, upload Upload, result recognition.Result, opLogger *zap.Logger) {
	hash := sha1.Sum(upload.Data)
	log := &repository.RecognitionLog{
		RequestID:   requestID,
		Filename:    upload.Filename,
		Label:       result.Label,
		Confidence:  result.Confidence,
		Mode:        string(uc.recognizer.Mode()),
		ContentType: sniffContentType(upload),
		SizeBytes:   int64(len(upload.Data)),
		SHA1Hash:    hex.EncodeToString(hash[:]),
		CreatedAt:   uc.now().UTC(),
	}

	if uc.repo != nil {
		if err := uc.repo.SaveLog(ctx, log); err != nil {
			wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
			opLogger.Warn("failed to persist recognition log", zap.Error(wrapped))
			metrics.HistoryFailuresTotal.WithLabelValues(logging.OperationOf(wrapped)).Inc()
		}
	}

	if uc.cache != nil {
		serialized, err := json.Marshal(log)
		if err != nil {
			opLogger.Warn("failed to serialize recognition log", zap.Error(err))
			return
		}
		err = retry.Do(ctx, uc.logger, uc.policy, "cache.set.result", requestID, func() error {
			return uc.cache.Set(ctx, resultKey(requestID), string(serialized), uc.resultTTL)
		})
		if err != nil {
			opLogger.Warn("failed to cache recognition result", zap.Error(err))
			metrics.HistoryFailuresTotal.WithLabelValues(logging.OperationOf(err)).Inc()
		}
	}
}

// GetResult retrieves a cached recognition log or loads it from persistence.
func (uc *RecognitionUseCase) GetResult(ctx context.Context, requestID string) (*repository.RecognitionLog, error) {
	if !uc.HistoryEnabled() {
		return nil, ErrHistoryDisabled
	}

	opLogger := logging.WithOperation(uc.logger, "usecase.get_result", requestID)
	if uc.cache != nil {
		var (
			cached string
			miss   bool
		)
		err := retry.Do(ctx, uc.logger, uc.policy, "cache.get.result", requestID, func() error {
			value, err := uc.cache.Get(ctx, resultKey(requestID))
			if errors.Is(err, redis.Nil) {
				miss = true
				return nil
			}
			if err != nil {
				return err
			}
			cached = value
			return nil
		})
		switch {
		case err != nil:
			opLogger.Warn("failed to read cache", zap.Error(err))
		case !miss:
			var log repository.RecognitionLog
			if err := json.Unmarshal([]byte(cached), &log); err != nil {
				opLogger.Warn("failed to decode cached result", zap.Error(err))
			} else {
				return &log, nil
			}
		}
	}

	if uc.repo == nil {
		return nil, ErrResultNotFound
	}
	log, err := uc.repo.FindByRequestID(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

func sniffContentType(upload Upload) string {
	if kind, err := filetype.Match(upload.Data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if upload.DeclaredType != "" {
		return upload.DeclaredType
	}
	return defaultContentType
}
