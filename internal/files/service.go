package files

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maneesh/chatrecords/internal/apperr"
	"github.com/maneesh/chatrecords/internal/events"
	"github.com/maneesh/chatrecords/internal/models"
	"github.com/maneesh/chatrecords/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	placeholderOriginalName = "uploaded_file"
	placeholderMimeType     = "application/octet-stream"
)

// DownloadPath is the API path clients follow to fetch a file's bytes
func DownloadPath(id string) string {
	return fmt.Sprintf("/api/v1/files/%s/download", id)
}

// ListParams are the optional filters of a file listing
type ListParams struct {
	WorkspaceID *string
	ChannelID   *string
	UploadedBy  *string
	MimeType    *string
	Limit       *int64
}

// Service implements the file record operations
type Service struct {
	repo      storage.FileRepository
	cache     storage.RecordCache
	urls      storage.DownloadURLBuilder
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a new file service
func NewService(repo storage.FileRepository, cache storage.RecordCache, urls storage.DownloadURLBuilder, publisher events.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		urls:      urls,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Create persists a pending placeholder record for a file whose bytes are ingested elsewhere
func (s *Service) Create(ctx context.Context, req models.CreateFileRequest) (*models.File, error) {
	if req.WorkspaceID == "" {
		return nil, apperr.InvalidArgument("workspace_id is required")
	}
	if req.UploadedBy == "" {
		return nil, apperr.InvalidArgument("uploaded_by is required")
	}

	now := s.now()
	file := &models.File{
		Name:         fmt.Sprintf("file_%s", uuid.NewString()),
		OriginalName: placeholderOriginalName,
		MimeType:     placeholderMimeType,
		StorageKey:   fmt.Sprintf("files/%s/%s", req.WorkspaceID, uuid.NewString()),
		WorkspaceID:  req.WorkspaceID,
		ChannelID:    req.ChannelID,
		UploadedBy:   req.UploadedBy,
		Status:       models.FileStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, file); err != nil {
		return nil, s.storageError(err, "", "create")
	}

	s.logger.WithFields(logrus.Fields{
		"file_id":      file.ID,
		"workspace_id": file.WorkspaceID,
		"uploaded_by":  file.UploadedBy,
	}).Info("File placeholder created")

	s.publish(ctx, events.Event{
		Type:        events.FileCreated,
		ID:          file.ID,
		WorkspaceID: file.WorkspaceID,
		UserID:      file.UploadedBy,
		Timestamp:   now,
	})
	return file, nil
}

// Get returns a live file and the path it can be downloaded from
func (s *Service) Get(ctx context.Context, id string) (*models.FileResponse, error) {
	if err := models.ValidateID(id); err != nil {
		return nil, apperr.InvalidArgument("Invalid ID")
	}

	var cached models.File
	found, err := s.cache.Get(ctx, storage.FileCacheKey(id), &cached)
	if err != nil {
		s.logger.WithError(err).WithField("file_id", id).Warn("File cache read failed")
	}
	if found && err == nil {
		return &models.FileResponse{File: cached, DownloadURL: DownloadPath(id)}, nil
	}

	file, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, s.storageError(err, id, "get")
	}

	if err := s.cache.Set(ctx, storage.FileCacheKey(id), file); err != nil {
		s.logger.WithError(err).WithField("file_id", id).Warn("File cache write failed")
	}
	return &models.FileResponse{File: *file, DownloadURL: DownloadPath(id)}, nil
}

// List returns a newest-first page of live files and the unpaged match count
func (s *Service) List(ctx context.Context, params ListParams) (*models.FilesResponse, error) {
	q := storage.FileQuery{
		WorkspaceID: params.WorkspaceID,
		ChannelID:   params.ChannelID,
		UploadedBy:  params.UploadedBy,
		MimeType:    params.MimeType,
		Limit:       models.PageLimit(params.Limit),
	}

	items, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, s.storageError(err, "", "list")
	}
	total, err := s.repo.Count(ctx, q)
	if err != nil {
		return nil, s.storageError(err, "", "count")
	}
	return &models.FilesResponse{Items: items, Total: total}, nil
}

// Delete soft-deletes the file. Unknown ids are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := models.ValidateID(id); err != nil {
		return apperr.InvalidArgument("Invalid ID")
	}

	now := s.now()
	if err := s.repo.SoftDelete(ctx, id, now); err != nil {
		return s.storageError(err, id, "delete")
	}
	s.invalidate(ctx, id)

	s.publish(ctx, s.scopedEvent(ctx, events.FileDeleted, id, now))
	return nil
}

// DownloadURL resolves where the file's bytes live. Soft-deleted files still resolve.
func (s *Service) DownloadURL(ctx context.Context, id string) (string, error) {
	if err := models.ValidateID(id); err != nil {
		return "", apperr.InvalidArgument("Invalid ID")
	}

	file, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return "", s.storageError(err, id, "download")
	}

	target, err := s.urls.DownloadURL(ctx, file.StorageKey)
	if err != nil {
		return "", s.storageError(err, id, "download")
	}
	return target, nil
}

// Share marks the file public and returns the path it is shared under
func (s *Service) Share(ctx context.Context, id string) (*models.ShareResponse, error) {
	if err := models.ValidateID(id); err != nil {
		return nil, apperr.InvalidArgument("Invalid ID")
	}

	now := s.now()
	if err := s.repo.SetPublic(ctx, id, true, now); err != nil {
		return nil, s.storageError(err, id, "share")
	}
	s.invalidate(ctx, id)

	s.publish(ctx, s.scopedEvent(ctx, events.FileShared, id, now))
	return &models.ShareResponse{ShareURL: DownloadPath(id)}, nil
}

// scopedEvent builds an event carrying the file's workspace and uploader.
// Soft-deleted files are still found. Unknown ids and lookup failures publish
// the event without them.
func (s *Service) scopedEvent(ctx context.Context, eventType, id string, now time.Time) events.Event {
	event := events.Event{Type: eventType, ID: id, Timestamp: now}

	file, err := s.repo.FindByID(ctx, id, true)
	switch {
	case err == nil:
		event.WorkspaceID = file.WorkspaceID
		event.UserID = file.UploadedBy
	case !errors.Is(err, storage.ErrNotFound):
		s.logger.WithError(err).WithField("file_id", id).Warn("File lookup for event routing failed")
	}
	return event
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, storage.FileCacheKey(id)); err != nil {
		s.logger.WithError(err).WithField("file_id", id).Warn("File cache invalidation failed")
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"subject": event.Type,
			"file_id": event.ID,
		}).Warn("Failed to publish file event")
	}
}

func (s *Service) storageError(err error, id, op string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("File not found")
	case errors.Is(err, storage.ErrInvalidID):
		return apperr.InvalidArgument("Invalid ID")
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"file_id":   id,
		"operation": op,
	}).Error("File storage operation failed")
	return apperr.Storage(err)
}
