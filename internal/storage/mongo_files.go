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

type fileDocument struct {
	ID           bson.ObjectID        `bson:"_id"`
	Name         string               `bson:"name"`
	OriginalName string               `bson:"original_name"`
	MimeType     string               `bson:"mime_type"`
	Size         int64                `bson:"size"`
	StorageKey   string               `bson:"storage_key"`
	URL          string               `bson:"url"`
	ThumbnailURL *string              `bson:"thumbnail_url,omitempty"`
	WorkspaceID  string               `bson:"workspace_id"`
	ChannelID    *string              `bson:"channel_id"`
	UploadedBy   string               `bson:"uploaded_by"`
	Checksum     string               `bson:"checksum"`
	Metadata     fileMetadataDocument `bson:"metadata"`
	Status       string               `bson:"status"`
	IsPublic     bool                 `bson:"is_public"`
	DeletedAt    *time.Time           `bson:"deleted_at,omitempty"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

type fileMetadataDocument struct {
	Width    *int64   `bson:"width,omitempty"`
	Height   *int64   `bson:"height,omitempty"`
	Duration *float64 `bson:"duration,omitempty"`
	Pages    *int64   `bson:"pages,omitempty"`
}

func newFileDocument(f *models.File, id bson.ObjectID) fileDocument {
	return fileDocument{
		ID:           id,
		Name:         f.Name,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         int64(f.Size),
		StorageKey:   f.StorageKey,
		URL:          f.URL,
		ThumbnailURL: f.ThumbnailURL,
		WorkspaceID:  f.WorkspaceID,
		ChannelID:    f.ChannelID,
		UploadedBy:   f.UploadedBy,
		Checksum:     f.Checksum,
		Metadata: fileMetadataDocument{
			Width:    toInt64Ptr(f.Metadata.Width),
			Height:   toInt64Ptr(f.Metadata.Height),
			Duration: f.Metadata.Duration,
			Pages:    toInt64Ptr(f.Metadata.Pages),
		},
		Status:    string(f.Status),
		IsPublic:  f.IsPublic,
		DeletedAt: f.DeletedAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (d *fileDocument) model() models.File {
	return models.File{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		OriginalName: d.OriginalName,
		MimeType:     d.MimeType,
		Size:         uint64(d.Size),
		StorageKey:   d.StorageKey,
		URL:          d.URL,
		ThumbnailURL: d.ThumbnailURL,
		WorkspaceID:  d.WorkspaceID,
		ChannelID:    d.ChannelID,
		UploadedBy:   d.UploadedBy,
		Checksum:     d.Checksum,
		Metadata: models.FileMetadata{
			Width:    toUint32Ptr(d.Metadata.Width),
			Height:   toUint32Ptr(d.Metadata.Height),
			Duration: d.Metadata.Duration,
			Pages:    toUint32Ptr(d.Metadata.Pages),
		},
		Status:    models.FileStatus(d.Status),
		IsPublic:  d.IsPublic,
		DeletedAt: d.DeletedAt,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoFileRepository stores files in the files collection
type MongoFileRepository struct {
	coll *mongo.Collection
}

// Insert stores a new file and assigns its id
func (r *MongoFileRepository) Insert(ctx context.Context, file *models.File) error {
	ctx, span := tracer.Start(ctx, "mongo.files.insert",
		trace.WithAttributes(
			attribute.String("workspace_id", file.WorkspaceID),
			attribute.String("uploaded_by", file.UploadedBy),
		),
	)
	defer span.End()

	id := bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, newFileDocument(file, id)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert file: %w", err)
	}

	file.ID = id.Hex()
	span.SetAttributes(attribute.String("file_id", file.ID))
	return nil
}

// FindByID loads a file by id
func (r *MongoFileRepository) FindByID(ctx context.Context, id string, includeDeleted bool) (*models.File, error) {
	ctx, span := tracer.Start(ctx, "mongo.files.find_by_id",
		trace.WithAttributes(
			attribute.String("file_id", id),
			attribute.Bool("include_deleted", includeDeleted),
		),
	)
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid}
	if !includeDeleted {
		filter["deleted_at"] = nil
	}

	var doc fileDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find file: %w", err)
	}

	file := doc.model()
	return &file, nil
}

// Find lists live files newest first
func (r *MongoFileRepository) Find(ctx context.Context, q FileQuery) ([]models.File, error) {
	ctx, span := tracer.Start(ctx, "mongo.files.find",
		trace.WithAttributes(attribute.Int64("limit", q.Limit)),
	)
	defer span.End()

	cursor, err := r.coll.Find(ctx, q.filter(), findOptions(q.Limit, false))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var docs []fileDocument
	if err := cursor.All(ctx, &docs); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}

	files := make([]models.File, 0, len(docs))
	for i := range docs {
		files = append(files, docs[i].model())
	}
	span.SetAttributes(attribute.Int("result_count", len(files)))
	return files, nil
}

// Count returns the number of live files matching q
func (r *MongoFileRepository) Count(ctx context.Context, q FileQuery) (int64, error) {
	ctx, span := tracer.Start(ctx, "mongo.files.count")
	defer span.End()

	total, err := r.coll.CountDocuments(ctx, q.filter())
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return total, nil
}

// SoftDelete stamps deleted_at on the file
func (r *MongoFileRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, "mongo.files.soft_delete", id, bson.M{"deleted_at": at})
}

// SetPublic flips the public flag on the file
func (r *MongoFileRepository) SetPublic(ctx context.Context, id string, public bool, at time.Time) error {
	return r.update(ctx, "mongo.files.set_public", id, bson.M{"is_public": public, "updated_at": at})
}

func (r *MongoFileRepository) update(ctx context.Context, op, id string, set bson.M) error {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("file_id", id)))
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update file: %w", err)
	}
	span.SetAttributes(attribute.Int64("matched_count", res.MatchedCount))
	return nil
}
