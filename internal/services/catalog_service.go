package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// CreateTopicInput declares a topic and its canonical story order. Story ids
// are accepted as written; dangling references are a regeneration-time
// concern, not a create-time error.
type CreateTopicInput struct {
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	LanguageCode      string      `json:"language_code"`
	CanonicalStoryIDs []uuid.UUID `json:"canonical_story_ids"`
}

type CreateStoryInput struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	LanguageCode string          `json:"language_code"`
	Chapters     []types.Chapter `json:"chapters"`
}

type CreateExplorationInput struct {
	Title                      string         `json:"title"`
	LanguageCode               string         `json:"language_code"`
	ContentUnitIDs             []string       `json:"content_unit_ids"`
	TranslationCounts          map[string]int `json:"translation_counts"`
	AssignedVoiceLanguageCodes []string       `json:"assigned_voice_language_codes"`
}

type CatalogService interface {
	CreateTopic(dbc dbctx.Context, in CreateTopicInput) (*types.Topic, error)
	ListTopics(dbc dbctx.Context) ([]*types.Topic, error)
	GetTopic(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error)

	CreateStory(dbc dbctx.Context, in CreateStoryInput) (*types.Story, error)
	ListStories(dbc dbctx.Context) ([]*types.Story, error)

	CreateExploration(dbc dbctx.Context, in CreateExplorationInput) (*types.Exploration, error)
	ListExplorations(dbc dbctx.Context) ([]*types.Exploration, error)
}

type catalogService struct {
	db           *gorm.DB
	log          *logger.Logger
	topics       repos.TopicRepo
	stories      repos.StoryRepo
	explorations repos.ExplorationRepo
}

func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, topics repos.TopicRepo, stories repos.StoryRepo, explorations repos.ExplorationRepo) CatalogService {
	return &catalogService{
		db:           db,
		log:          baseLog.With("service", "CatalogService"),
		topics:       topics,
		stories:      stories,
		explorations: explorations,
	}
}

func (s *catalogService) CreateTopic(dbc dbctx.Context, in CreateTopicInput) (*types.Topic, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("topic name is required")
	}
	lang := strings.TrimSpace(in.LanguageCode)
	if lang == "" {
		return nil, fmt.Errorf("topic language_code is required")
	}

	now := time.Now().UTC()
	topic := &types.Topic{
		ID:                uuid.New(),
		Name:              name,
		Description:       strings.TrimSpace(in.Description),
		LanguageCode:      lang,
		CanonicalStoryIDs: types.EncodeUUIDList(in.CanonicalStoryIDs),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := s.topics.Create(dbc, []*types.Topic{topic}); err != nil {
		s.log.Error("CreateTopic failed", "name", name, "error", err)
		return nil, err
	}
	return topic, nil
}

func (s *catalogService) ListTopics(dbc dbctx.Context) ([]*types.Topic, error) {
	return s.topics.ListAll(dbc)
}

func (s *catalogService) GetTopic(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("topic id is required")
	}
	topic, err := s.topics.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, fmt.Errorf("topic not found")
	}
	return topic, nil
}

func (s *catalogService) CreateStory(dbc dbctx.Context, in CreateStoryInput) (*types.Story, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("story title is required")
	}
	lang := strings.TrimSpace(in.LanguageCode)
	if lang == "" {
		return nil, fmt.Errorf("story language_code is required")
	}
	for i, ch := range in.Chapters {
		if strings.TrimSpace(ch.Title) == "" {
			return nil, fmt.Errorf("chapter %d has no title", i+1)
		}
	}

	now := time.Now().UTC()
	story := &types.Story{
		ID:           uuid.New(),
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		LanguageCode: lang,
		Chapters:     types.EncodeChapters(in.Chapters),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.stories.Create(dbc, []*types.Story{story}); err != nil {
		s.log.Error("CreateStory failed", "title", title, "error", err)
		return nil, err
	}
	return story, nil
}

func (s *catalogService) ListStories(dbc dbctx.Context) ([]*types.Story, error) {
	return s.stories.ListAll(dbc)
}

func (s *catalogService) CreateExploration(dbc dbctx.Context, in CreateExplorationInput) (*types.Exploration, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("exploration title is required")
	}
	lang := strings.TrimSpace(in.LanguageCode)
	if lang == "" {
		return nil, fmt.Errorf("exploration language_code is required")
	}
	for langCode, count := range in.TranslationCounts {
		if count < 0 {
			return nil, fmt.Errorf("translation count for %q is negative", langCode)
		}
	}

	now := time.Now().UTC()
	exp := &types.Exploration{
		ID:                         uuid.New(),
		Title:                      title,
		LanguageCode:               lang,
		ContentUnitIDs:             types.EncodeStringList(in.ContentUnitIDs),
		TranslationCounts:          types.EncodeTranslationCounts(in.TranslationCounts),
		AssignedVoiceLanguageCodes: types.EncodeStringList(in.AssignedVoiceLanguageCodes),
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	if _, err := s.explorations.Create(dbc, []*types.Exploration{exp}); err != nil {
		s.log.Error("CreateExploration failed", "title", title, "error", err)
		return nil, err
	}
	return exp, nil
}

func (s *catalogService) ListExplorations(dbc dbctx.Context) ([]*types.Exploration, error) {
	return s.explorations.ListAll(dbc)
}
