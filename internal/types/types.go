// Package types defines the shared vocabulary taxonomy.Weights,
// taxonomy.TierConfig, and the Vision Registry score against: knowledge
// categories and quality tiers. Finding and Severity (the reviewer's own
// vocabulary) live in finding.go.
package types

// KnowledgeType represents the category of a piece of captured knowledge
// (currently: an elevated vision's lore entry).
type KnowledgeType string

const (
	// KnowledgeTypeDecision is an architectural choice with rationale.
	KnowledgeTypeDecision KnowledgeType = "decision"

	// KnowledgeTypeSolution is a working fix for a problem.
	KnowledgeTypeSolution KnowledgeType = "solution"

	// KnowledgeTypeLearning is an insight gained from experience.
	KnowledgeTypeLearning KnowledgeType = "learning"

	// KnowledgeTypeFailure is what didn't work and why.
	KnowledgeTypeFailure KnowledgeType = "failure"

	// KnowledgeTypeReference is a pointer to a useful resource.
	KnowledgeTypeReference KnowledgeType = "reference"
)

// Tier represents a quality tier assignment derived from a score.
type Tier string

const (
	// TierGold is the highest quality tier (0.85-1.0 score).
	TierGold Tier = "gold"

	// TierSilver is high quality tier (0.70-0.84 score).
	TierSilver Tier = "silver"

	// TierBronze is acceptable quality tier (0.50-0.69 score).
	TierBronze Tier = "bronze"

	// TierDiscard is below threshold, not stored (<0.50 score).
	TierDiscard Tier = "discard"
)
