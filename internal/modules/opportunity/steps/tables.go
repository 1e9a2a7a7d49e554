package steps

import (
	"github.com/google/uuid"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
)

// StoryTable is a read-only id lookup over one story snapshot. It is built
// once per run and then shared across every topic worker, so it exposes no
// way to mutate the underlying map. Snapshot ids are expected to be unique;
// when they are not, the last row read wins and the collision is counted so
// the run can surface it instead of swallowing it.
type StoryTable struct {
	byID       map[uuid.UUID]*types.Story
	duplicates int
}

func NewStoryTable(rows []*types.Story) StoryTable {
	byID := make(map[uuid.UUID]*types.Story, len(rows))
	dups := 0
	for _, row := range rows {
		if row == nil || row.ID == uuid.Nil {
			continue
		}
		if _, ok := byID[row.ID]; ok {
			dups++
		}
		byID[row.ID] = row
	}
	return StoryTable{byID: byID, duplicates: dups}
}

func (t StoryTable) Get(id uuid.UUID) (*types.Story, bool) {
	row, ok := t.byID[id]
	return row, ok
}

func (t StoryTable) Has(id uuid.UUID) bool {
	_, ok := t.byID[id]
	return ok
}

func (t StoryTable) Len() int { return len(t.byID) }

// Duplicates is the number of snapshot rows that collided on an id.
func (t StoryTable) Duplicates() int { return t.duplicates }

// ExplorationTable mirrors StoryTable for the exploration snapshot.
type ExplorationTable struct {
	byID       map[uuid.UUID]*types.Exploration
	duplicates int
}

func NewExplorationTable(rows []*types.Exploration) ExplorationTable {
	byID := make(map[uuid.UUID]*types.Exploration, len(rows))
	dups := 0
	for _, row := range rows {
		if row == nil || row.ID == uuid.Nil {
			continue
		}
		if _, ok := byID[row.ID]; ok {
			dups++
		}
		byID[row.ID] = row
	}
	return ExplorationTable{byID: byID, duplicates: dups}
}

func (t ExplorationTable) Get(id uuid.UUID) (*types.Exploration, bool) {
	row, ok := t.byID[id]
	return row, ok
}

func (t ExplorationTable) Has(id uuid.UUID) bool {
	_, ok := t.byID[id]
	return ok
}

func (t ExplorationTable) Len() int { return len(t.byID) }

func (t ExplorationTable) Duplicates() int { return t.duplicates }
