package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/facemock/internal/retry"
)

// RecognitionLog is the persisted metadata of one fabricated recognition.
// Image bytes are never stored; only their hash, size and sniffed type.
type RecognitionLog struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	RequestID   string    `gorm:"column:request_id;uniqueIndex;size:64" json:"request_id"`
	Filename    string    `gorm:"column:filename;size:255" json:"filename"`
	Label       string    `gorm:"column:label;size:255" json:"label"`
	Confidence  float64   `gorm:"column:confidence" json:"confidence"`
	Mode        string    `gorm:"column:mode;size:16" json:"mode"`
	ContentType string    `gorm:"column:content_type;size:128" json:"content_type"`
	SizeBytes   int64     `gorm:"column:size_bytes" json:"size_bytes"`
	SHA1Hash    string    `gorm:"column:sha1_hash;size:40;index" json:"sha1_hash"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the default table name.
func (RecognitionLog) TableName() string {
	return "recognition_logs"
}

// Aggregation holds the totals computed over all recognition logs.
type Aggregation struct {
	TotalCount        int64
	FixedCount        int64
	AverageConfidence float64
	MinConfidence     float64
	MaxConfidence     float64
}

// RecognitionRepository provides persistence APIs for recognition logs.
type RecognitionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	policy retry.Policy
}

// NewRecognitionRepository creates a new repository instance.
func NewRecognitionRepository(db *gorm.DB, logger *zap.Logger) *RecognitionRepository {
	return &RecognitionRepository{
		db:     db,
		logger: logger.Named("recognition_repository"),
		policy: retry.DefaultPolicy,
	}
}

// AutoMigrate ensures the schema is available.
func (r *RecognitionRepository) AutoMigrate(ctx context.Context) error {
	return r.executeWithRetry(ctx, "repository.auto_migrate", "", func() error {
		return r.db.WithContext(ctx).AutoMigrate(&RecognitionLog{})
	})
}

// SaveLog persists a recognition log entry.
func (r *RecognitionRepository) SaveLog(ctx context.Context, log *RecognitionLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByRequestID retrieves the log written for a request.
func (r *RecognitionRepository) FindByRequestID(ctx context.Context, requestID string) (*RecognitionLog, error) {
	var log RecognitionLog
	err := r.executeWithRetry(ctx, "repository.find_by_request_id", requestID, func() error {
		return r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// AggregateMetrics summarises every stored recognition.
func (r *RecognitionRepository) AggregateMetrics(ctx context.Context) (*Aggregation, error) {
	var agg Aggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&RecognitionLog{}).
			Select(`COUNT(*) AS total_count,
				COALESCE(SUM(CASE WHEN mode = ? THEN 1 ELSE 0 END), 0) AS fixed_count,
				COALESCE(AVG(confidence), 0) AS average_confidence,
				COALESCE(MIN(confidence), 0) AS min_confidence,
				COALESCE(MAX(confidence), 0) AS max_confidence`, "fixed").
			Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *RecognitionRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	return retry.Do(ctx, r.logger, r.policy, operation, requestID, fn)
}
