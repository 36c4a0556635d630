package models

import "time"

// MessageType is the kind of content a message carries
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeImage       MessageType = "image"
	MessageTypeVideo       MessageType = "video"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeFile        MessageType = "file"
	MessageTypeSystem      MessageType = "system"
	MessageTypeCodeSnippet MessageType = "code_snippet"
	MessageTypePoll        MessageType = "poll"
)

// Valid reports whether t is one of the known message types
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio,
		MessageTypeFile, MessageTypeSystem, MessageTypeCodeSnippet, MessageTypePoll:
		return true
	}
	return false
}

// Message represents a chat message stored in the messages collection
type Message struct {
	ID              string       `json:"id"`
	ChannelID       string       `json:"channel_id"`
	UserID          string       `json:"user_id"`
	Content         string       `json:"content"`
	ThreadID        *string      `json:"thread_id,omitempty"`
	ParentMessageID *string      `json:"parent_message_id,omitempty"`
	MessageType     MessageType  `json:"message_type"`
	Attachments     []Attachment `json:"attachments"`
	Mentions        []string     `json:"mentions"`
	Reactions       []Reaction   `json:"reactions"`
	EditedAt        *time.Time   `json:"edited_at,omitempty"`
	DeletedAt       *time.Time   `json:"deleted_at,omitempty"`
	IsPinned        bool         `json:"is_pinned"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// IsDeleted reports whether the record has been soft-deleted
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// Attachment references a file shared inside a message
type Attachment struct {
	ID           string  `json:"id"`
	FileType     string  `json:"file_type"`
	FileName     string  `json:"file_name"`
	FileSize     uint64  `json:"file_size"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}

// Reaction is one entry of a message's reaction list.
// Entries are appended per reaction call and never merged per emoji.
type Reaction struct {
	Emoji   string   `json:"emoji"`
	UserIDs []string `json:"user_ids"`
	Count   uint32   `json:"count"`
}

// NewReaction builds the single-user entry appended by an add-reaction call
func NewReaction(userID, emoji string) Reaction {
	return Reaction{Emoji: emoji, UserIDs: []string{userID}, Count: 1}
}

// Equal reports element equality as used by add-to-set
func (r Reaction) Equal(other Reaction) bool {
	if r.Emoji != other.Emoji || r.Count != other.Count || len(r.UserIDs) != len(other.UserIDs) {
		return false
	}
	for i := range r.UserIDs {
		if r.UserIDs[i] != other.UserIDs[i] {
			return false
		}
	}
	return true
}

// CreateMessageRequest is the body of POST /messages. Repeated mentions are collapsed.
type CreateMessageRequest struct {
	ChannelID       string       `json:"channel_id"`
	UserID          string       `json:"user_id"`
	Content         *string      `json:"content"`
	ThreadID        *string      `json:"thread_id,omitempty"`
	ParentMessageID *string      `json:"parent_message_id,omitempty"`
	Attachments     []Attachment `json:"attachments"`
	Mentions        []string     `json:"mentions"`
}

// UpdateMessageRequest is the body of PUT /messages/{id}. A nil Content keeps the text.
type UpdateMessageRequest struct {
	Content *string `json:"content"`
}

// AddReactionRequest is the body of POST /messages/{id}/reactions
type AddReactionRequest struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// MessagesResponse is a page of messages. HasMore is true when the page is full,
// Cursor is the id of the last message on the page.
type MessagesResponse struct {
	Items   []Message `json:"items"`
	HasMore bool      `json:"has_more"`
	Cursor  *string   `json:"cursor,omitempty"`
}

// StatusResponse is the body of mutations that acknowledge with a short message
type StatusResponse struct {
	Message string `json:"message"`
}
