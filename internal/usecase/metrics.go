package usecase

import "context"

// Summary represents aggregated insights over the stored recognitions.
type Summary struct {
	Mode              string  `json:"mode"`
	TotalRequests     int64   `json:"total_requests"`
	FixedRequests     int64   `json:"fixed_requests"`
	RandomRequests    int64   `json:"random_requests"`
	AverageConfidence float64 `json:"average_confidence"`
	MinConfidence     float64 `json:"min_confidence"`
	MaxConfidence     float64 `json:"max_confidence"`
}

// GetSummary aggregates recognition statistics from persisted logs.
func (uc *RecognitionUseCase) GetSummary(ctx context.Context) (*Summary, error) {
	if uc.repo == nil {
		return nil, ErrHistoryDisabled
	}

	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Mode:              string(uc.recognizer.Mode()),
		TotalRequests:     aggregation.TotalCount,
		FixedRequests:     aggregation.FixedCount,
		RandomRequests:    aggregation.TotalCount - aggregation.FixedCount,
		AverageConfidence: aggregation.AverageConfidence,
		MinConfidence:     aggregation.MinConfidence,
		MaxConfidence:     aggregation.MaxConfidence,
	}, nil
}
