package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maneesh/chatrecords/internal/models"
)

// MemoryFileRepository keeps files in process memory
type MemoryFileRepository struct {
	mu    sync.RWMutex
	files map[string]models.File
}

// NewMemoryFileRepository creates an empty in-memory file repository
func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{files: make(map[string]models.File)}
}

func (r *MemoryFileRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryFileRepository) Insert(ctx context.Context, file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file.ID = models.NewID()
	r.files[file.ID] = cloneFile(*file)
	return nil
}

func (r *MemoryFileRepository) FindByID(ctx context.Context, id string, includeDeleted bool) (*models.File, error) {
	if _, err := objectID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok || (!includeDeleted && f.IsDeleted()) {
		return nil, ErrNotFound
	}
	f = cloneFile(f)
	return &f, nil
}

func (r *MemoryFileRepository) Find(ctx context.Context, q FileQuery) ([]models.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.File, 0)
	for _, f := range r.files {
		if q.Matches(&f) {
			out = append(out, cloneFile(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return truncate(out, q.Limit), nil
}

func (r *MemoryFileRepository) Count(ctx context.Context, q FileQuery) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, f := range r.files {
		if q.Matches(&f) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryFileRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(f *models.File) {
		f.DeletedAt = &at
	})
}

func (r *MemoryFileRepository) SetPublic(ctx context.Context, id string, public bool, at time.Time) error {
	return r.update(id, func(f *models.File) {
		f.IsPublic = public
		f.UpdatedAt = at
	})
}

func (r *MemoryFileRepository) update(id string, apply func(*models.File)) error {
	if _, err := objectID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return nil
	}
	apply(&f)
	r.files[id] = f
	return nil
}

// MemoryMessageRepository keeps messages in process memory
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]models.Message
}

// NewMemoryMessageRepository creates an empty in-memory message repository
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string]models.Message)}
}

func (r *MemoryMessageRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryMessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = models.NewID()
	r.messages[msg.ID] = cloneMessage(*msg)
	return nil
}

func (r *MemoryMessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	if _, err := objectID(id); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.messages[id]
	if !ok || m.IsDeleted() {
		return nil, ErrNotFound
	}
	m = cloneMessage(m)
	return &m, nil
}

func (r *MemoryMessageRepository) Find(ctx context.Context, q MessageQuery) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Message, 0)
	for _, m := range r.messages {
		if q.Matches(&m) {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Ascending {
			return newerFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
		}
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return truncate(out, q.Limit), nil
}

func (r *MemoryMessageRepository) UpdateContent(ctx context.Context, id string, content *string, at time.Time) error {
	return r.update(id, func(m *models.Message) {
		if content != nil {
			m.Content = *content
		}
		m.EditedAt = &at
		m.UpdatedAt = at
	})
}

func (r *MemoryMessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(m *models.Message) {
		m.DeletedAt = &at
	})
}

func (r *MemoryMessageRepository) AddReaction(ctx context.Context, id string, reaction models.Reaction, at time.Time) error {
	return r.update(id, func(m *models.Message) {
		m.UpdatedAt = at
		for _, existing := range m.Reactions {
			if existing.Equal(reaction) {
				return
			}
		}
		m.Reactions = append(m.Reactions, cloneReaction(reaction))
	})
}

func (r *MemoryMessageRepository) RemoveReactions(ctx context.Context, id string, emoji string, at time.Time) error {
	return r.update(id, func(m *models.Message) {
		kept := make([]models.Reaction, 0, len(m.Reactions))
		for _, existing := range m.Reactions {
			if existing.Emoji != emoji {
				kept = append(kept, existing)
			}
		}
		m.Reactions = kept
		m.UpdatedAt = at
	})
}

func (r *MemoryMessageRepository) SetPinned(ctx context.Context, id string, pinned bool, at time.Time) error {
	return r.update(id, func(m *models.Message) {
		m.IsPinned = pinned
		m.UpdatedAt = at
	})
}

func (r *MemoryMessageRepository) update(id string, apply func(*models.Message)) error {
	if _, err := objectID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[id]
	if !ok {
		return nil
	}
	apply(&m)
	r.messages[id] = m
	return nil
}

// newerFirst orders by created_at descending, then id descending
func newerFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func truncate[T any](items []T, limit int64) []T {
	if limit > 0 && int64(len(items)) > limit {
		return items[:limit]
	}
	return items
}

func cloneFile(f models.File) models.File {
	if f.DeletedAt != nil {
		at := *f.DeletedAt
		f.DeletedAt = &at
	}
	return f
}

func cloneMessage(m models.Message) models.Message {
	m.Attachments = append(make([]models.Attachment, 0, len(m.Attachments)), m.Attachments...)
	m.Mentions = append(make([]string, 0, len(m.Mentions)), m.Mentions...)
	reactions := make([]models.Reaction, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		reactions = append(reactions, cloneReaction(r))
	}
	m.Reactions = reactions
	if m.EditedAt != nil {
		at := *m.EditedAt
		m.EditedAt = &at
	}
	if m.DeletedAt != nil {
		at := *m.DeletedAt
		m.DeletedAt = &at
	}
	return m
}

func cloneReaction(r models.Reaction) models.Reaction {
	r.UserIDs = append(make([]string, 0, len(r.UserIDs)), r.UserIDs...)
	return r
}
