package domain

import "context"

// EventPublisher broadcasts freshly computed analysis results to live
// subscribers. Cache hits are not republished.
type EventPublisher interface {
	PublishResult(ctx context.Context, result AnalysisResult) error
}
