package storage

import (
	"context"
	"errors"
	"time"

	"github.com/maneesh/chatrecords/internal/models"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("chatrecords-storage")

var (
	// ErrNotFound is returned when no record matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID is returned for identifiers the backend cannot parse
	ErrInvalidID = errors.New("invalid record id")
)

// FileRepository persists file records. Mutations on an id that matches no
// record succeed without error.
type FileRepository interface {
	// Insert assigns file.ID and stores the record
	Insert(ctx context.Context, file *models.File) error
	// FindByID ignores soft-deleted records unless includeDeleted is set
	FindByID(ctx context.Context, id string, includeDeleted bool) (*models.File, error)
	Find(ctx context.Context, q FileQuery) ([]models.File, error)
	// Count ignores q.Limit
	Count(ctx context.Context, q FileQuery) (int64, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	SetPublic(ctx context.Context, id string, public bool, at time.Time) error
}

// MessageRepository persists message records. Mutations on an id that matches
// no record succeed without error.
type MessageRepository interface {
	// Insert assigns msg.ID and stores the record
	Insert(ctx context.Context, msg *models.Message) error
	// FindByID never returns soft-deleted records
	FindByID(ctx context.Context, id string) (*models.Message, error)
	Find(ctx context.Context, q MessageQuery) ([]models.Message, error)
	// UpdateContent stamps edited_at and updated_at even when content is nil
	UpdateContent(ctx context.Context, id string, content *string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// AddReaction appends r unless an identical entry is already present
	AddReaction(ctx context.Context, id string, r models.Reaction, at time.Time) error
	// RemoveReactions drops every entry with the given emoji
	RemoveReactions(ctx context.Context, id string, emoji string, at time.Time) error
	SetPinned(ctx context.Context, id string, pinned bool, at time.Time) error
}

// Pinger is implemented by backends that can report liveness
type Pinger interface {
	Ping(ctx context.Context) error
}
