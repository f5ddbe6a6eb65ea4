package domain

import "context"

// PillarSource fetches one pillar's raw signal for a token. Implementations
// fail with a *FetchError; callers map every failure to QualityMissing and
// proceed with the remaining pillars.
type PillarSource interface {
	Pillar() Pillar
	Fetch(ctx context.Context, address string, network Network) (PillarResult, error)
}
