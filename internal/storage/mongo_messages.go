package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maneesh/chatrecords/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type messageDocument struct {
	ID              bson.ObjectID        `bson:"_id"`
	ChannelID       string               `bson:"channel_id"`
	UserID          string               `bson:"user_id"`
	Content         string               `bson:"content"`
	ThreadID        *string              `bson:"thread_id,omitempty"`
	ParentMessageID *string              `bson:"parent_message_id,omitempty"`
	MessageType     string               `bson:"message_type"`
	Attachments     []attachmentDocument `bson:"attachments"`
	Mentions        []string             `bson:"mentions"`
	Reactions       []reactionDocument   `bson:"reactions"`
	EditedAt        *time.Time           `bson:"edited_at,omitempty"`
	DeletedAt       *time.Time           `bson:"deleted_at,omitempty"`
	IsPinned        bool                 `bson:"is_pinned"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

type attachmentDocument struct {
	ID           string  `bson:"id"`
	FileType     string  `bson:"file_type"`
	FileName     string  `bson:"file_name"`
	FileSize     int64   `bson:"file_size"`
	URL          string  `bson:"url"`
	ThumbnailURL *string `bson:"thumbnail_url,omitempty"`
}

// reactionDocument field order matters: $addToSet compares whole documents
type reactionDocument struct {
	Emoji   string   `bson:"emoji"`
	UserIDs []string `bson:"user_ids"`
	Count   int64    `bson:"count"`
}

func newReactionDocument(r models.Reaction) reactionDocument {
	userIDs := r.UserIDs
	if userIDs == nil {
		userIDs = []string{}
	}
	return reactionDocument{Emoji: r.Emoji, UserIDs: userIDs, Count: int64(r.Count)}
}

func newMessageDocument(m *models.Message, id bson.ObjectID) messageDocument {
	doc := messageDocument{
		ID:              id,
		ChannelID:       m.ChannelID,
		UserID:          m.UserID,
		Content:         m.Content,
		ThreadID:        m.ThreadID,
		ParentMessageID: m.ParentMessageID,
		MessageType:     string(m.MessageType),
		Attachments:     make([]attachmentDocument, 0, len(m.Attachments)),
		Mentions:        m.Mentions,
		Reactions:       make([]reactionDocument, 0, len(m.Reactions)),
		EditedAt:        m.EditedAt,
		DeletedAt:       m.DeletedAt,
		IsPinned:        m.IsPinned,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if doc.Mentions == nil {
		doc.Mentions = []string{}
	}
	for _, a := range m.Attachments {
		doc.Attachments = append(doc.Attachments, attachmentDocument{
			ID:           a.ID,
			FileType:     a.FileType,
			FileName:     a.FileName,
			FileSize:     int64(a.FileSize),
			URL:          a.URL,
			ThumbnailURL: a.ThumbnailURL,
		})
	}
	for _, r := range m.Reactions {
		doc.Reactions = append(doc.Reactions, newReactionDocument(r))
	}
	return doc
}

func (d *messageDocument) model() models.Message {
	m := models.Message{
		ID:              d.ID.Hex(),
		ChannelID:       d.ChannelID,
		UserID:          d.UserID,
		Content:         d.Content,
		ThreadID:        d.ThreadID,
		ParentMessageID: d.ParentMessageID,
		MessageType:     models.MessageType(d.MessageType),
		Attachments:     make([]models.Attachment, 0, len(d.Attachments)),
		Mentions:        d.Mentions,
		Reactions:       make([]models.Reaction, 0, len(d.Reactions)),
		EditedAt:        d.EditedAt,
		DeletedAt:       d.DeletedAt,
		IsPinned:        d.IsPinned,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if m.Mentions == nil {
		m.Mentions = []string{}
	}
	for _, a := range d.Attachments {
		m.Attachments = append(m.Attachments, models.Attachment{
			ID:           a.ID,
			FileType:     a.FileType,
			FileName:     a.FileName,
			FileSize:     uint64(a.FileSize),
			URL:          a.URL,
			ThumbnailURL: a.ThumbnailURL,
		})
	}
	for _, r := range d.Reactions {
		m.Reactions = append(m.Reactions, models.Reaction{Emoji: r.Emoji, UserIDs: r.UserIDs, Count: uint32(r.Count)})
	}
	return m
}

// MongoMessageRepository stores messages in the messages collection
type MongoMessageRepository struct {
	coll *mongo.Collection
}

// Insert stores a new message and assigns its id
func (r *MongoMessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	ctx, span := tracer.Start(ctx, "mongo.messages.insert",
		trace.WithAttributes(
			attribute.String("channel_id", msg.ChannelID),
			attribute.String("user_id", msg.UserID),
		),
	)
	defer span.End()

	id := bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, newMessageDocument(msg, id)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert message: %w", err)
	}

	msg.ID = id.Hex()
	span.SetAttributes(attribute.String("message_id", msg.ID))
	return nil
}

// FindByID loads a live message by id
func (r *MongoMessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	ctx, span := tracer.Start(ctx, "mongo.messages.find_by_id",
		trace.WithAttributes(attribute.String("message_id", id)),
	)
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc messageDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid, "deleted_at": nil}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find message: %w", err)
	}

	msg := doc.model()
	return &msg, nil
}

// Find lists live messages ordered by created_at
func (r *MongoMessageRepository) Find(ctx context.Context, q MessageQuery) ([]models.Message, error) {
	ctx, span := tracer.Start(ctx, "mongo.messages.find",
		trace.WithAttributes(
			attribute.Int64("limit", q.Limit),
			attribute.Bool("ascending", q.Ascending),
		),
	)
	defer span.End()

	cursor, err := r.coll.Find(ctx, q.filter(), findOptions(q.Limit, q.Ascending))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(docs))
	for i := range docs {
		msgs = append(msgs, docs[i].model())
	}
	span.SetAttributes(attribute.Int("result_count", len(msgs)))
	return msgs, nil
}

// UpdateContent replaces the content when given and marks the message edited
func (r *MongoMessageRepository) UpdateContent(ctx context.Context, id string, content *string, at time.Time) error {
	set := bson.M{"edited_at": at, "updated_at": at}
	if content != nil {
		set["content"] = *content
	}
	return r.update(ctx, "mongo.messages.update_content", id, bson.M{"$set": set})
}

// SoftDelete stamps deleted_at on the message
func (r *MongoMessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, "mongo.messages.soft_delete", id, bson.M{"$set": bson.M{"deleted_at": at}})
}

// AddReaction appends the reaction entry with add-to-set semantics
func (r *MongoMessageRepository) AddReaction(ctx context.Context, id string, reaction models.Reaction, at time.Time) error {
	return r.update(ctx, "mongo.messages.add_reaction", id, bson.M{
		"$addToSet": bson.M{"reactions": newReactionDocument(reaction)},
		"$set":      bson.M{"updated_at": at},
	})
}

// RemoveReactions pulls every reaction entry carrying emoji
func (r *MongoMessageRepository) RemoveReactions(ctx context.Context, id string, emoji string, at time.Time) error {
	return r.update(ctx, "mongo.messages.remove_reactions", id, bson.M{
		"$pull": bson.M{"reactions": bson.M{"emoji": emoji}},
		"$set":  bson.M{"updated_at": at},
	})
}

// SetPinned sets or clears the pinned flag
func (r *MongoMessageRepository) SetPinned(ctx context.Context, id string, pinned bool, at time.Time) error {
	return r.update(ctx, "mongo.messages.set_pinned", id, bson.M{
		"$set": bson.M{"is_pinned": pinned, "updated_at": at},
	})
}

func (r *MongoMessageRepository) update(ctx context.Context, op, id string, update bson.M) error {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("message_id", id)))
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update message: %w", err)
	}
	span.SetAttributes(attribute.Int64("matched_count", res.MatchedCount))
	return nil
}
