package pillars

import "github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"

// QualityLadder grades a pillar's magnitude metric (flow volume, post count,
// market cap) into a quality label. Cutoffs are inclusive; a metric above
// zero but below Fair is Poor, and a zero metric means there is no data.
type QualityLadder struct {
	Fair      float64
	Good      float64
	Excellent float64
}

func (l QualityLadder) Grade(metric float64) domain.Quality {
	switch {
	case metric >= l.Excellent:
		return domain.QualityExcellent
	case metric >= l.Good:
		return domain.QualityGood
	case metric >= l.Fair:
		return domain.QualityFair
	case metric > 0:
		return domain.QualityPoor
	default:
		return domain.QualityMissing
	}
}
