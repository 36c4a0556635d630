package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/maneesh/chatrecords/internal/messages"
	"github.com/maneesh/chatrecords/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageHandler serves the message record API
type MessageHandler struct {
	svc *messages.Service
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(svc *messages.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// Register mounts the message routes on r, which is expected to be the /api/v1 subrouter
func (mh *MessageHandler) Register(r *mux.Router) {
	route(r, http.MethodPost, "/messages", mh.create)
	route(r, http.MethodGet, "/messages", mh.list)
	route(r, http.MethodGet, "/messages/{id}", mh.get)
	route(r, http.MethodPut, "/messages/{id}", mh.update)
	route(r, http.MethodDelete, "/messages/{id}", mh.delete)
	route(r, http.MethodPost, "/messages/{id}/reactions", mh.addReaction)
	route(r, http.MethodDelete, "/messages/{id}/reactions/{emoji}", mh.removeReaction)
	route(r, http.MethodPost, "/messages/{id}/pin", mh.pin)
	route(r, http.MethodPost, "/messages/{id}/unpin", mh.unpin)
	route(r, http.MethodDelete, "/messages/{id}/pin", mh.unpin)
	route(r, http.MethodGet, "/channels/{channel_id}/messages", mh.channelMessages)
	route(r, http.MethodGet, "/threads/{thread_id}/messages", mh.threadMessages)
}

// create handles POST /messages
func (mh *MessageHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "create_message")
	defer span.End()

	var req models.CreateMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("channel_id", req.ChannelID))

	msg, err := mh.svc.Create(ctx, req)
	if err != nil {
		writeError(w, span, err)
		return
	}

	span.SetAttributes(attribute.String("message_id", msg.ID))
	writeJSON(w, http.StatusCreated, msg)
}

// list handles GET /messages?channel_id=&user_id=&limit=
func (mh *MessageHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "list_messages")
	defer span.End()

	limit, err := limitParam(r)
	if err != nil {
		writeError(w, span, err)
		return
	}

	page, err := mh.svc.List(ctx, messages.ListParams{
		ChannelID: queryParam(r, "channel_id"),
		UserID:    queryParam(r, "user_id"),
		Limit:     limit,
	})
	mh.writePage(w, span, page, err)
}

// get handles GET /messages/{id}
func (mh *MessageHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "get_message", "message_id")
	defer span.End()

	msg, err := mh.svc.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// update handles PUT /messages/{id}. An empty body stamps the edit without changing content.
func (mh *MessageHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "update_message", "message_id")
	defer span.End()

	var req models.UpdateMessageRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, span, err)
		return
	}

	if err := mh.svc.Update(ctx, mux.Vars(r)["id"], req); err != nil {
		writeError(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Message: "Updated"})
}

// delete handles DELETE /messages/{id}
func (mh *MessageHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "delete_message", "message_id")
	defer span.End()

	if err := mh.svc.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		writeError(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addReaction handles POST /messages/{id}/reactions
func (mh *MessageHandler) addReaction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "add_reaction", "message_id")
	defer span.End()

	var req models.AddReactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("emoji", req.Emoji))

	if err := mh.svc.AddReaction(ctx, mux.Vars(r)["id"], req); err != nil {
		writeError(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Message: "Reaction added"})
}

// removeReaction handles DELETE /messages/{id}/reactions/{emoji}
func (mh *MessageHandler) removeReaction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "remove_reaction", "message_id")
	defer span.End()

	vars := mux.Vars(r)
	span.SetAttributes(attribute.String("emoji", vars["emoji"]))

	if err := mh.svc.RemoveReaction(ctx, vars["id"], vars["emoji"]); err != nil {
		writeError(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pin handles POST /messages/{id}/pin
func (mh *MessageHandler) pin(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "pin_message", "message_id")
	defer span.End()

	if err := mh.svc.Pin(ctx, mux.Vars(r)["id"]); err != nil {
		writeError(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Message: "Pinned"})
}

// unpin handles POST /messages/{id}/unpin and DELETE /messages/{id}/pin
func (mh *MessageHandler) unpin(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "unpin_message", "message_id")
	defer span.End()

	if err := mh.svc.Unpin(ctx, mux.Vars(r)["id"]); err != nil {
		writeError(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Message: "Unpinned"})
}

// channelMessages handles GET /channels/{channel_id}/messages
func (mh *MessageHandler) channelMessages(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channel_id"]
	ctx, span := tracer.Start(r.Context(), "channel_messages",
		trace.WithAttributes(attribute.String("channel_id", channelID)),
	)
	defer span.End()

	limit, err := limitParam(r)
	if err != nil {
		writeError(w, span, err)
		return
	}

	page, err := mh.svc.ChannelMessages(ctx, channelID, limit)
	mh.writePage(w, span, page, err)
}

// threadMessages handles GET /threads/{thread_id}/messages
func (mh *MessageHandler) threadMessages(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["thread_id"]
	ctx, span := tracer.Start(r.Context(), "thread_messages",
		trace.WithAttributes(attribute.String("thread_id", threadID)),
	)
	defer span.End()

	limit, err := limitParam(r)
	if err != nil {
		writeError(w, span, err)
		return
	}

	page, err := mh.svc.ThreadMessages(ctx, threadID, limit)
	mh.writePage(w, span, page, err)
}

func (mh *MessageHandler) writePage(w http.ResponseWriter, span trace.Span, page *models.MessagesResponse, err error) {
	if err != nil {
		writeError(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("result_count", len(page.Items)),
		attribute.Bool("has_more", page.HasMore),
	)
	writeJSON(w, http.StatusOK, page)
}
