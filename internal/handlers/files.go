package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/maneesh/chatrecords/internal/files"
	"github.com/maneesh/chatrecords/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// FileHandler serves the file record API
type FileHandler struct {
	svc *files.Service
}

// NewFileHandler creates a new file handler
func NewFileHandler(svc *files.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

// Register mounts the file routes on r, which is expected to be the /api/v1 subrouter
func (fh *FileHandler) Register(r *mux.Router) {
	route(r, http.MethodPost, "/files", fh.create)
	route(r, http.MethodGet, "/files", fh.list)
	route(r, http.MethodGet, "/files/{id}", fh.get)
	route(r, http.MethodDelete, "/files/{id}", fh.delete)
	route(r, http.MethodGet, "/files/{id}/download", fh.download)
	route(r, http.MethodPost, "/files/{id}/share", fh.share)
}

// create handles POST /files?workspace_id=&channel_id=&uploaded_by=
func (fh *FileHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "create_file")
	defer span.End()

	q := r.URL.Query()
	req := models.CreateFileRequest{
		WorkspaceID: q.Get("workspace_id"),
		ChannelID:   queryParam(r, "channel_id"),
		UploadedBy:  q.Get("uploaded_by"),
	}
	span.SetAttributes(attribute.String("workspace_id", req.WorkspaceID))

	file, err := fh.svc.Create(ctx, req)
	if err != nil {
		writeError(w, span, err)
		return
	}

	span.SetAttributes(attribute.String("file_id", file.ID))
	writeJSON(w, http.StatusCreated, file)
}

// list handles GET /files
func (fh *FileHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "list_files")
	defer span.End()

	limit, err := limitParam(r)
	if err != nil {
		writeError(w, span, err)
		return
	}

	page, err := fh.svc.List(ctx, files.ListParams{
		WorkspaceID: queryParam(r, "workspace_id"),
		ChannelID:   queryParam(r, "channel_id"),
		UploadedBy:  queryParam(r, "uploaded_by"),
		MimeType:    queryParam(r, "mime_type"),
		Limit:       limit,
	})
	if err != nil {
		writeError(w, span, err)
		return
	}

	span.SetAttributes(
		attribute.Int("result_count", len(page.Items)),
		attribute.Int64("total", page.Total),
	)
	writeJSON(w, http.StatusOK, page)
}

// get handles GET /files/{id}
func (fh *FileHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "get_file", "file_id")
	defer span.End()

	resp, err := fh.svc.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /files/{id}
func (fh *FileHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "delete_file", "file_id")
	defer span.End()

	if err := fh.svc.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		writeError(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// download handles GET /files/{id}/download with a temporary redirect to the object
func (fh *FileHandler) download(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "download_file", "file_id")
	defer span.End()

	target, err := fh.svc.DownloadURL(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, span, err)
		return
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// share handles POST /files/{id}/share
func (fh *FileHandler) share(w http.ResponseWriter, r *http.Request) {
	ctx, span := startWithID(r, "share_file", "file_id")
	defer span.End()

	resp, err := fh.svc.Share(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
