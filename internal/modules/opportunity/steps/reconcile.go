package steps

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
)

// TopicOutcome is the all-or-nothing result of reconciling one topic. Either
// Records carries every summary derivable from the topic and Failure is
// empty, or Records is empty and Failure holds the diagnostic.
type TopicOutcome struct {
	TopicID               uuid.UUID
	Records               []*types.OpportunitySummary
	Failure               string
	MissingStoryIDs       []uuid.UUID
	MissingExplorationIDs []uuid.UUID
}

func (o TopicOutcome) Failed() bool { return o.Failure != "" }

// Report renders the operator-facing line for this topic.
func (o TopicOutcome) Report() string {
	if o.Failed() {
		return "FAILURE: " + o.Failure
	}
	return "SUCCESS"
}

// reconcileTopic evaluates one topic against the run's lookup tables. It
// never panics: any fault inside the derivation is converted into a failure
// outcome, so one bad topic cannot abort the batch.
func reconcileTopic(topic *types.Topic, stories StoryTable, exps ExplorationTable, project ProjectFunc) (out TopicOutcome) {
	topicID := uuid.Nil
	if topic != nil {
		topicID = topic.ID
	}
	defer func() {
		if r := recover(); r != nil {
			out = TopicOutcome{
				TopicID: topicID,
				Failure: fmt.Sprintf("topic %s: %v", topicID, r),
			}
		}
	}()
	if topic == nil {
		return TopicOutcome{TopicID: topicID, Failure: "nil topic"}
	}
	if project == nil {
		project = BuildSummary
	}
	return deriveTopicSummaries(topic, stories, exps, project)
}

// deriveTopicSummaries is the pure derivation: resolve the topic's canonical
// story list and each resolved story's chapter links against the snapshot
// tables, then emit one summary per chapter/exploration pair. A story linking
// the same exploration from two chapters yields two summaries; persistence
// collapses them because both carry the same composite id.
func deriveTopicSummaries(topic *types.Topic, stories StoryTable, exps ExplorationTable, project ProjectFunc) TopicOutcome {
	out := TopicOutcome{TopicID: topic.ID}

	storyIDs, err := topic.StoryIDs()
	if err != nil {
		out.Failure = fmt.Sprintf("topic %s: %v", topic.ID, err)
		return out
	}

	type resolvedStory struct {
		story    *types.Story
		chapters []types.Chapter
	}

	var (
		resolved       []resolvedStory
		linkedExpIDs   []uuid.UUID
		missingStories []uuid.UUID
	)
	for _, id := range dedupeUUIDs(storyIDs) {
		story, ok := stories.Get(id)
		if !ok {
			missingStories = append(missingStories, id)
			continue
		}
		chapters, err := story.ChapterList()
		if err != nil {
			out.Failure = fmt.Sprintf("topic %s: story %s: %v", topic.ID, id, err)
			return out
		}
		resolved = append(resolved, resolvedStory{story: story, chapters: chapters})
		for _, ch := range chapters {
			if ch.ExplorationID == nil || *ch.ExplorationID == uuid.Nil {
				continue
			}
			linkedExpIDs = append(linkedExpIDs, *ch.ExplorationID)
		}
	}

	var missingExps []uuid.UUID
	for _, id := range dedupeUUIDs(linkedExpIDs) {
		if !exps.Has(id) {
			missingExps = append(missingExps, id)
		}
	}

	if len(missingStories) > 0 || len(missingExps) > 0 {
		out.MissingStoryIDs = sortedUUIDs(missingStories)
		out.MissingExplorationIDs = sortedUUIDs(missingExps)
		out.Failure = fmt.Sprintf(
			"Failed to regenerate opportunities for topic id: %s, missing_exp_with_ids: %v, missing_story_with_ids: %v",
			topic.ID, out.MissingExplorationIDs, out.MissingStoryIDs)
		return out
	}

	var records []*types.OpportunitySummary
	for _, rs := range resolved {
		for _, ch := range rs.chapters {
			if ch.ExplorationID == nil || *ch.ExplorationID == uuid.Nil {
				continue
			}
			exp, _ := exps.Get(*ch.ExplorationID)
			rec, err := project(topic, rs.story, ch, exp)
			if err != nil {
				out.Failure = fmt.Sprintf("topic %s: %v", topic.ID, err)
				return out
			}
			records = append(records, rec)
		}
	}
	out.Records = records
	return out
}

// dedupeUUIDs keeps the first occurrence of each id, preserving order.
func dedupeUUIDs(in []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	out := make([]uuid.UUID, 0, len(in))
	for _, id := range in {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortedUUIDs(in []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
