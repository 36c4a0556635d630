package messages

import (
	"context"
	"errors"
	"time"

	"github.com/maneesh/chatrecords/internal/apperr"
	"github.com/maneesh/chatrecords/internal/events"
	"github.com/maneesh/chatrecords/internal/models"
	"github.com/maneesh/chatrecords/internal/storage"
	"github.com/sirupsen/logrus"
)

// ListParams are the optional filters of a message listing
type ListParams struct {
	ChannelID *string
	UserID    *string
	Limit     *int64
}

// Service implements the message record operations
type Service struct {
	repo      storage.MessageRepository
	cache     storage.RecordCache
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a new message service
func NewService(repo storage.MessageRepository, cache storage.RecordCache, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Create stores a new text message with no reactions
func (s *Service) Create(ctx context.Context, req models.CreateMessageRequest) (*models.Message, error) {
	switch {
	case req.ChannelID == "":
		return nil, apperr.InvalidArgument("channel_id is required")
	case req.UserID == "":
		return nil, apperr.InvalidArgument("user_id is required")
	case req.Content == nil:
		return nil, apperr.InvalidArgument("content is required")
	}

	now := s.now()
	msg := &models.Message{
		ChannelID:       req.ChannelID,
		UserID:          req.UserID,
		Content:         *req.Content,
		ThreadID:        req.ThreadID,
		ParentMessageID: req.ParentMessageID,
		MessageType:     models.MessageTypeText,
		Attachments:     req.Attachments,
		Mentions:        uniqueMentions(req.Mentions),
		Reactions:       []models.Reaction{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if msg.Attachments == nil {
		msg.Attachments = []models.Attachment{}
	}

	if err := s.repo.Insert(ctx, msg); err != nil {
		return nil, s.storageError(err, "", "create")
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"channel_id": msg.ChannelID,
		"user_id":    msg.UserID,
	}).Debug("Message created")

	s.publish(ctx, events.Event{
		Type:      events.MessageCreated,
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Timestamp: now,
	})
	return msg, nil
}

// Get returns a live message
func (s *Service) Get(ctx context.Context, id string) (*models.Message, error) {
	if err := models.ValidateID(id); err != nil {
		return nil, apperr.InvalidArgument("Invalid ID")
	}

	var cached models.Message
	found, err := s.cache.Get(ctx, storage.MessageCacheKey(id), &cached)
	if err != nil {
		s.logger.WithError(err).WithField("message_id", id).Warn("Message cache read failed")
	}
	if found && err == nil {
		return &cached, nil
	}

	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storageError(err, id, "get")
	}

	if err := s.cache.Set(ctx, storage.MessageCacheKey(id), msg); err != nil {
		s.logger.WithError(err).WithField("message_id", id).Warn("Message cache write failed")
	}
	return msg, nil
}

// List returns a newest-first page of live messages
func (s *Service) List(ctx context.Context, params ListParams) (*models.MessagesResponse, error) {
	return s.page(ctx, storage.MessageQuery{
		ChannelID: params.ChannelID,
		UserID:    params.UserID,
		Limit:     models.PageLimit(params.Limit),
	}, true)
}

// ChannelMessages returns a newest-first page of top-level messages in the channel
func (s *Service) ChannelMessages(ctx context.Context, channelID string, limit *int64) (*models.MessagesResponse, error) {
	return s.page(ctx, storage.MessageQuery{
		ChannelID:    &channelID,
		TopLevelOnly: true,
		Limit:        models.PageLimit(limit),
	}, true)
}

// ThreadMessages returns the thread's replies in chronological order, without a cursor
func (s *Service) ThreadMessages(ctx context.Context, threadID string, limit *int64) (*models.MessagesResponse, error) {
	return s.page(ctx, storage.MessageQuery{
		ThreadID:  &threadID,
		Ascending: true,
		Limit:     models.PageLimit(limit),
	}, false)
}

// page reports has_more when the page is full; the cursor is the last id on the page
func (s *Service) page(ctx context.Context, q storage.MessageQuery, withCursor bool) (*models.MessagesResponse, error) {
	items, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, s.storageError(err, "", "list")
	}

	resp := &models.MessagesResponse{
		Items:   items,
		HasMore: int64(len(items)) == q.Limit,
	}
	if withCursor && len(items) > 0 {
		last := items[len(items)-1].ID
		resp.Cursor = &last
	}
	return resp, nil
}

// Update replaces the content when given. edited_at and updated_at are stamped either way.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateMessageRequest) error {
	return s.mutate(ctx, id, "update", events.Event{Type: events.MessageUpdated}, func(now time.Time) error {
		return s.repo.UpdateContent(ctx, id, req.Content, now)
	})
}

// Delete soft-deletes the message. Unknown ids are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, "delete", events.Event{Type: events.MessageDeleted}, func(now time.Time) error {
		return s.repo.SoftDelete(ctx, id, now)
	})
}

// AddReaction appends a single-user reaction entry unless an identical one exists
func (s *Service) AddReaction(ctx context.Context, id string, req models.AddReactionRequest) error {
	if err := models.ValidateID(id); err != nil {
		return apperr.InvalidArgument("Invalid ID")
	}
	if req.UserID == "" {
		return apperr.InvalidArgument("user_id is required")
	}
	if req.Emoji == "" {
		return apperr.InvalidArgument("emoji is required")
	}

	event := events.Event{Type: events.MessageReactionAdded, UserID: req.UserID, Emoji: req.Emoji}
	return s.mutate(ctx, id, "add_reaction", event, func(now time.Time) error {
		return s.repo.AddReaction(ctx, id, models.NewReaction(req.UserID, req.Emoji), now)
	})
}

// RemoveReaction drops every reaction entry with the emoji, whoever added it
func (s *Service) RemoveReaction(ctx context.Context, id, emoji string) error {
	if err := models.ValidateID(id); err != nil {
		return apperr.InvalidArgument("Invalid ID")
	}
	if emoji == "" {
		return apperr.InvalidArgument("emoji is required")
	}

	event := events.Event{Type: events.MessageReactionRemoved, Emoji: emoji}
	return s.mutate(ctx, id, "remove_reaction", event, func(now time.Time) error {
		return s.repo.RemoveReactions(ctx, id, emoji, now)
	})
}

// Pin marks the message pinned. Pinning twice is a no-op.
func (s *Service) Pin(ctx context.Context, id string) error {
	return s.mutate(ctx, id, "pin", events.Event{Type: events.MessagePinned}, func(now time.Time) error {
		return s.repo.SetPinned(ctx, id, true, now)
	})
}

// Unpin clears the pinned flag
func (s *Service) Unpin(ctx context.Context, id string) error {
	return s.mutate(ctx, id, "unpin", events.Event{Type: events.MessageUnpinned}, func(now time.Time) error {
		return s.repo.SetPinned(ctx, id, false, now)
	})
}

// mutate validates the id, applies the change, then invalidates the cache and publishes the event
func (s *Service) mutate(ctx context.Context, id, op string, event events.Event, apply func(now time.Time) error) error {
	if err := models.ValidateID(id); err != nil {
		return apperr.InvalidArgument("Invalid ID")
	}

	// looked up before apply since a deleted message is no longer found
	channelID := s.channelOf(ctx, id)

	now := s.now()
	if err := apply(now); err != nil {
		return s.storageError(err, id, op)
	}

	if err := s.cache.Invalidate(ctx, storage.MessageCacheKey(id)); err != nil {
		s.logger.WithError(err).WithField("message_id", id).Warn("Message cache invalidation failed")
	}

	event.ID = id
	event.ChannelID = channelID
	event.Timestamp = now
	s.publish(ctx, event)
	return nil
}

// channelOf returns the channel an event about id is routed by. Unknown ids
// and lookup failures leave it empty.
func (s *Service) channelOf(ctx context.Context, id string) string {
	msg, err := s.repo.FindByID(ctx, id)
	switch {
	case err == nil:
		return msg.ChannelID
	case !errors.Is(err, storage.ErrNotFound):
		s.logger.WithError(err).WithField("message_id", id).Warn("Message lookup for event routing failed")
	}
	return ""
}

// uniqueMentions drops repeated user ids, keeping first-seen order
func uniqueMentions(mentions []string) []string {
	out := make([]string, 0, len(mentions))
	seen := make(map[string]struct{}, len(mentions))
	for _, m := range mentions {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"subject":    event.Type,
			"message_id": event.ID,
		}).Warn("Failed to publish message event")
	}
}

func (s *Service) storageError(err error, id, op string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("Message not found")
	case errors.Is(err, storage.ErrInvalidID):
		return apperr.InvalidArgument("Invalid ID")
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"message_id": id,
		"operation":  op,
	}).Error("Message storage operation failed")
	return apperr.Storage(err)
}
