package storage

import (
	"github.com/maneesh/chatrecords/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// FileQuery selects live files. Nil fields are not filtered on.
type FileQuery struct {
	WorkspaceID *string
	ChannelID   *string
	UploadedBy  *string
	MimeType    *string
	Limit       int64
}

func (q FileQuery) filter() bson.M {
	filter := bson.M{"deleted_at": nil}
	if q.WorkspaceID != nil {
		filter["workspace_id"] = *q.WorkspaceID
	}
	if q.ChannelID != nil {
		filter["channel_id"] = *q.ChannelID
	}
	if q.UploadedBy != nil {
		filter["uploaded_by"] = *q.UploadedBy
	}
	if q.MimeType != nil {
		filter["mime_type"] = *q.MimeType
	}
	return filter
}

// Matches applies the same selection as filter to an in-memory record
func (q FileQuery) Matches(f *models.File) bool {
	if f.IsDeleted() {
		return false
	}
	if q.WorkspaceID != nil && f.WorkspaceID != *q.WorkspaceID {
		return false
	}
	if q.ChannelID != nil && (f.ChannelID == nil || *f.ChannelID != *q.ChannelID) {
		return false
	}
	if q.UploadedBy != nil && f.UploadedBy != *q.UploadedBy {
		return false
	}
	if q.MimeType != nil && f.MimeType != *q.MimeType {
		return false
	}
	return true
}

// MessageQuery selects live messages.
// TopLevelOnly restricts to messages without a thread, Ascending flips the
// default newest-first order.
type MessageQuery struct {
	ChannelID    *string
	UserID       *string
	ThreadID     *string
	TopLevelOnly bool
	Ascending    bool
	Limit        int64
}

func (q MessageQuery) filter() bson.M {
	filter := bson.M{"deleted_at": nil}
	if q.ChannelID != nil {
		filter["channel_id"] = *q.ChannelID
	}
	if q.UserID != nil {
		filter["user_id"] = *q.UserID
	}
	if q.ThreadID != nil {
		filter["thread_id"] = *q.ThreadID
	} else if q.TopLevelOnly {
		filter["thread_id"] = nil
	}
	return filter
}

// Matches applies the same selection as filter to an in-memory record
func (q MessageQuery) Matches(m *models.Message) bool {
	if m.IsDeleted() {
		return false
	}
	if q.ChannelID != nil && m.ChannelID != *q.ChannelID {
		return false
	}
	if q.UserID != nil && m.UserID != *q.UserID {
		return false
	}
	if q.ThreadID != nil {
		if m.ThreadID == nil || *m.ThreadID != *q.ThreadID {
			return false
		}
	} else if q.TopLevelOnly && m.ThreadID != nil {
		return false
	}
	return true
}

// findOptions orders by created_at, breaking ties on _id so pages are stable
func findOptions(limit int64, ascending bool) *options.FindOptionsBuilder {
	dir := -1
	if ascending {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}
