package model

import (
	"encoding/json"
	"strings"
)

// TagDef is one entry of the tag palette. Tasks reference tags by Name.
type TagDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DefaultTagColor is used for tags created without a color.
const DefaultTagColor = "#3b82f6"

// StarterTags returns the palette used when none has been saved yet.
func StarterTags() []TagDef {
	return []TagDef{
		{ID: "work", Name: "Work", Color: "#3b82f6"},
		{ID: "personal", Name: "Personal", Color: "#10b981"},
		{ID: "health", Name: "Health", Color: "#f43f5e"},
		{ID: "study", Name: "Study", Color: "#f59e0b"},
	}
}

// DecodeTags decodes a tag palette. Both the object form and the older form
// (a plain array of names) are accepted.
func DecodeTags(data []byte) ([]TagDef, error) {
	var defs []TagDef
	if err := json.Unmarshal(data, &defs); err == nil {
		return defs, nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, err
	}
	defs = make([]TagDef, 0, len(names))
	for _, n := range names {
		defs = append(defs, TagDef{
			ID:    strings.ToLower(strings.TrimSpace(n)),
			Name:  n,
			Color: DefaultTagColor,
		})
	}
	return defs, nil
}
