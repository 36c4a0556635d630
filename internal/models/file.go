package models

import "time"

// FileStatus tracks whether the bytes behind a file record have been ingested
type FileStatus string

const (
	// FileStatusPending marks a placeholder whose content has not been uploaded yet
	FileStatusPending FileStatus = "pending"
	FileStatusReady   FileStatus = "ready"
)

// File represents file metadata stored in the files collection
type File struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	OriginalName string       `json:"original_name"`
	MimeType     string       `json:"mime_type"`
	Size         uint64       `json:"size"`
	StorageKey   string       `json:"storage_key"`
	URL          string       `json:"url"`
	ThumbnailURL *string      `json:"thumbnail_url,omitempty"`
	WorkspaceID  string       `json:"workspace_id"`
	ChannelID    *string      `json:"channel_id"`
	UploadedBy   string       `json:"uploaded_by"`
	Checksum     string       `json:"checksum"`
	Metadata     FileMetadata `json:"metadata"`
	Status       FileStatus   `json:"status"`
	IsPublic     bool         `json:"is_public"`
	DeletedAt    *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FileMetadata stores type-specific metadata
type FileMetadata struct {
	Width    *uint32  `json:"width,omitempty"`
	Height   *uint32  `json:"height,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Pages    *uint32  `json:"pages,omitempty"`
}

// IsDeleted reports whether the record has been soft-deleted
func (f *File) IsDeleted() bool {
	return f.DeletedAt != nil
}

// CreateFileRequest carries the query parameters of POST /files
type CreateFileRequest struct {
	WorkspaceID string
	ChannelID   *string
	UploadedBy  string
}

// FileResponse is returned by GET /files/{id}
type FileResponse struct {
	File        File   `json:"file"`
	DownloadURL string `json:"download_url"`
}

// FilesResponse is a page of files plus the unpaged match count
type FilesResponse struct {
	Items []File `json:"items"`
	Total int64  `json:"total"`
}

// ShareResponse is returned by POST /files/{id}/share
type ShareResponse struct {
	ShareURL string `json:"share_url"`
}
