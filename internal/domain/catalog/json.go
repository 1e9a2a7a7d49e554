package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DecodeUUIDList reads a jsonb array of ids. Accepts either uuid-typed or
// plain string entries so hand-seeded rows stay loadable.
func DecodeUUIDList(raw datatypes.JSON) ([]uuid.UUID, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err == nil {
		return ids, nil
	}
	var strs []string
	if err := json.Unmarshal(raw, &strs); err != nil {
		return nil, fmt.Errorf("decode uuid list: %w", err)
	}
	out := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("decode uuid list: %w", err)
		}
		out = append(out, id)
	}
	return out, nil
}

func EncodeUUIDList(ids []uuid.UUID) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}

func DecodeStringList(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return out, nil
}

func EncodeStringList(vals []string) datatypes.JSON {
	if len(vals) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}
