package steps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/modules/opportunity/keys"
	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
)

// ProjectFunc turns one resolved (topic, story, chapter, exploration) join
// into a summary row. Regenerate takes it as an injectable dependency so the
// language-metadata computation can evolve without touching reconciliation.
type ProjectFunc func(topic *types.Topic, story *types.Story, chapter types.Chapter, exp *types.Exploration) (*types.OpportunitySummary, error)

// Platform languages offered to volunteers when SUPPORTED_LANGUAGE_CODES is
// unset.
var defaultSupportedLanguages = []string{
	"ar", "bn", "de", "en", "es", "fr", "hi", "id", "pt", "sw", "zh",
}

func supportedLanguageCodes() []string {
	return envutil.List("SUPPORTED_LANGUAGE_CODES", defaultSupportedLanguages)
}

// BuildSummary is the default projection. Language metadata is derived from
// the exploration's translation state:
//   - a language is complete when its translated-unit count covers every
//     content unit (an exploration with zero units has no complete
//     translations),
//   - incomplete = supported languages minus complete minus the
//     exploration's own language,
//   - voice artists are needed for complete languages plus the exploration's
//     own language, minus languages that already have one assigned.
func BuildSummary(topic *types.Topic, story *types.Story, chapter types.Chapter, exp *types.Exploration) (*types.OpportunitySummary, error) {
	if topic == nil || story == nil || exp == nil {
		return nil, fmt.Errorf("build summary: nil input")
	}

	contentCount, err := exp.ContentCount()
	if err != nil {
		return nil, fmt.Errorf("exploration %s: %w", exp.ID, err)
	}
	translationCounts, err := exp.TranslationCountByLanguage()
	if err != nil {
		return nil, fmt.Errorf("exploration %s: %w", exp.ID, err)
	}
	assigned, err := exp.AssignedVoiceLanguages()
	if err != nil {
		return nil, fmt.Errorf("exploration %s: %w", exp.ID, err)
	}

	ownLang := strings.TrimSpace(exp.LanguageCode)

	complete := map[string]bool{}
	for lang, count := range translationCounts {
		if contentCount > 0 && count >= contentCount {
			complete[lang] = true
		}
	}

	incomplete := make([]string, 0)
	for _, lang := range supportedLanguageCodes() {
		if lang == ownLang || complete[lang] {
			continue
		}
		incomplete = append(incomplete, lang)
	}
	sort.Strings(incomplete)

	assignedSet := map[string]bool{}
	for _, lang := range assigned {
		assignedSet[strings.TrimSpace(lang)] = true
	}

	needingVoice := make([]string, 0, len(complete)+1)
	for lang := range complete {
		if !assignedSet[lang] {
			needingVoice = append(needingVoice, lang)
		}
	}
	if ownLang != "" && !complete[ownLang] && !assignedSet[ownLang] {
		needingVoice = append(needingVoice, ownLang)
	}
	sort.Strings(needingVoice)

	withAssigned := make([]string, 0, len(assignedSet))
	for lang := range assignedSet {
		if lang != "" {
			withAssigned = append(withAssigned, lang)
		}
	}
	sort.Strings(withAssigned)

	now := time.Now().UTC()
	return &types.OpportunitySummary{
		ID:            keys.SummaryKey(topic.ID, story.ID, exp.ID),
		TopicID:       topic.ID,
		TopicName:     topic.Name,
		StoryID:       story.ID,
		StoryTitle:    story.Title,
		ChapterTitle:  chapter.Title,
		ExplorationID: exp.ID,
		ContentCount:  contentCount,

		IncompleteTranslationLanguageCodes:    types.EncodeStringList(incomplete),
		TranslationCounts:                     types.EncodeTranslationCounts(translationCounts),
		LanguageCodesNeedingVoiceArtists:      types.EncodeStringList(needingVoice),
		LanguageCodesWithAssignedVoiceArtists: types.EncodeStringList(withAssigned),

		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
