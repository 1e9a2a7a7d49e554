package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// SummaryKey computes the deterministic row id for an opportunity summary
// from its (topic, story, exploration) triple. Regenerating against an
// unchanged catalog yields the same id, so writes land on the same row
// instead of accumulating.
func SummaryKey(topicID, storyID, explorationID uuid.UUID) string {
	payload := map[string]any{
		"topic_id":       topicID.String(),
		"story_id":       storyID.String(),
		"exploration_id": explorationID.String(),
		"v":              1,
	}
	b, _ := json.Marshal(payload)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:32]
}
