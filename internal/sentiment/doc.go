// Package sentiment implements the aggregation engine that turns per-pillar
// signals into a classified result. The engine is pure computation over
// validated, immutable configuration: weights renormalize over the pillars
// that actually delivered data, and confidence is discounted by the original
// weight that was left uncovered.
package sentiment
