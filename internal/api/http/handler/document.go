package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// DocumentService defines document registry operations.
type DocumentService interface {
	Upload(ctx context.Context, uploader model.Profile, meta model.DocumentMetadata, contents io.Reader) (model.DocumentRecord, error)
	Get(ctx context.Context, id uuid.UUID) (model.DocumentRecord, error)
	DownloadURL(ctx context.Context, doc model.DocumentRecord) (string, error)
	List(ctx context.Context, filter model.DocumentFilter) ([]model.DocumentRecord, error)
	Facets(ctx context.Context) (model.DocumentFacets, error)
	Delete(ctx context.Context, admin model.Profile, id uuid.UUID) error
}

// Document handles the /documents endpoints.
type Document struct {
	documents      DocumentService
	contextManager model.ContextManager
	logger         *logger.Logger
	maxUploadBytes int64
}

func NewDocument(documents DocumentService, contextManager model.ContextManager, logger *logger.Logger, maxUploadBytes int64) *Document {
	return &Document{
		documents:      documents,
		contextManager: contextManager,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

type FacetsResponse struct {
	Subjects  []string `json:"subjects"`
	Semesters []string `json:"semesters"`
}

// List filters documents by the optional subject and semester query parameters.
func (h *Document) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.DocumentFilter{
		Subject:  optionalParam(query.Get("subject")),
		Semester: optionalParam(query.Get("semester")),
	}

	docs, err := h.documents.List(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *Document) Facets(w http.ResponseWriter, r *http.Request) {
	facets, err := h.documents.Facets(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, FacetsResponse{Subjects: facets.Subjects, Semesters: facets.Semesters})
}

// Get returns the document with a download URL.
func (h *Document) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	url, err := h.documents.DownloadURL(r.Context(), doc)
	if err != nil {
		h.logger.Error("Document handler: failed to resolve download url",
			"document_id", id,
			"error", err.Error())
		WriteError(w, err)
		return
	}

	resp := toDocumentResponse(doc)
	resp.DownloadURL = url
	WriteJSON(w, http.StatusOK, resp)
}

// Upload accepts a multipart form with a "file" part and the metadata fields.
func (h *Document) Upload(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.contextManager.GetProfileFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrInvalidCredentials)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, fmt.Errorf("%w: file exceeds %d bytes", model.ErrInvalidInput, h.maxUploadBytes))
			return
		}
		WriteError(w, fmt.Errorf("%w: malformed multipart form", model.ErrInvalidInput))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, fmt.Errorf("%w: file is required", model.ErrInvalidInput))
		return
	}
	defer file.Close()

	meta := model.DocumentMetadata{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
		Subject:     optionalParam(r.FormValue("subject")),
		Semester:    optionalParam(r.FormValue("semester")),
	}

	doc, err := h.documents.Upload(r.Context(), caller, meta, file)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// Delete removes a document. The registry rejects callers without the administrator role.
func (h *Document) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.contextManager.GetProfileFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrInvalidCredentials)
		return
	}

	id, err := pathID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.documents.Delete(r.Context(), caller, id); err != nil {
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func optionalParam(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id", model.ErrInvalidInput)
	}
	return id, nil
}
