package task

import (
	"context"
	"slices"
	"strings"

	appLog "taskflow/internal/log"
	"taskflow/internal/model"
)

// Tags returns the palette.
func (m *Manager) Tags() []model.TagDef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.snap.Tags)
}

func (m *Manager) tagIndex(id string) int {
	return slices.IndexFunc(m.snap.Tags, func(t model.TagDef) bool { return t.ID == id })
}

// nameTaken reports whether another tag (not exceptID) already uses name,
// ignoring case.
func (m *Manager) nameTaken(name, exceptID string) bool {
	return slices.ContainsFunc(m.snap.Tags, func(t model.TagDef) bool {
		return t.ID != exceptID && strings.EqualFold(t.Name, name)
	})
}

// AddTag appends a tag to the palette. Names are trimmed and unique ignoring
// case.
func (m *Manager) AddTag(ctx context.Context, name, color string) (model.TagDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return model.TagDef{}, ErrEmptyTagName
	}
	if m.nameTaken(name, "") {
		return model.TagDef{}, ErrTagExists
	}
	if color == "" {
		color = model.DefaultTagColor
	}

	tag := model.TagDef{ID: m.newID(), Name: name, Color: color}
	next := m.draft()
	next.Tags = append(next.Tags, tag)
	if err := m.commit(ctx, next); err != nil {
		return model.TagDef{}, err
	}

	appLog.Info("tag added", "id", tag.ID, "name", tag.Name)
	return tag, nil
}

// UpdateTag renames or recolors a tag. Tasks keep the tag name they were
// saved with.
func (m *Manager) UpdateTag(ctx context.Context, id, name, color string) (model.TagDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.tagIndex(id)
	if i < 0 {
		return model.TagDef{}, ErrTagNotFound
	}

	tag := m.snap.Tags[i]
	if name = strings.TrimSpace(name); name != "" {
		if m.nameTaken(name, id) {
			return model.TagDef{}, ErrTagExists
		}
		tag.Name = name
	}
	if color != "" {
		tag.Color = color
	}

	next := m.draft()
	next.Tags[i] = tag
	if err := m.commit(ctx, next); err != nil {
		return model.TagDef{}, err
	}

	appLog.Info("tag updated", "id", id, "name", tag.Name)
	return tag, nil
}

// RemoveTag drops a tag from the palette. Tasks referencing it by name are
// left as they are.
func (m *Manager) RemoveTag(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.tagIndex(id)
	if i < 0 {
		return ErrTagNotFound
	}

	next := m.draft()
	next.Tags = slices.Delete(next.Tags, i, i+1)
	if err := m.commit(ctx, next); err != nil {
		return err
	}

	appLog.Info("tag removed", "id", id)
	return nil
}
