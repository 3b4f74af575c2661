package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/logger"
	"github.com/dtroode/studyvault-server/internal/model"
)

// AccessService defines the role and account operations of the access control engine.
type AccessService interface {
	Promote(ctx context.Context, actor model.Profile, targetEmail string) error
	Demote(ctx context.Context, actor model.Profile, targetID uuid.UUID) error
	SetAdminStatus(ctx context.Context, actor model.Profile, targetID uuid.UUID, desired bool) error
	DeleteAccount(ctx context.Context, actor model.Profile, targetID uuid.UUID) error
}

// LedgerService defines activity ledger reads.
type LedgerService interface {
	Page(ctx context.Context, after *model.ActivityCursor, limit int) ([]model.ActivityRecord, *model.ActivityCursor, error)
}

// Admin handles the /admin endpoints. Role checks for mutations happen in the engine.
type Admin struct {
	directory      DirectoryService
	access         AccessService
	ledger         LedgerService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAdmin(
	directory DirectoryService,
	access AccessService,
	ledger LedgerService,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Admin {
	return &Admin{
		directory:      directory,
		access:         access,
		ledger:         ledger,
		contextManager: contextManager,
		logger:         logger,
	}
}

type promoteRequest struct {
	Email string `json:"email"`
}

type adminStatusRequest struct {
	IsAdmin *bool `json:"is_admin"`
}

type ActivityPageResponse struct {
	Records    []ActivityResponse `json:"records"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func (h *Admin) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.directory.ListAll(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toProfileResponses(profiles))
}

func (h *Admin) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.directory.ListAdmins(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toProfileResponses(admins))
}

// Promote grants the administrator role by email.
func (h *Admin) Promote(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req promoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.access.Promote(r.Context(), actor, strings.TrimSpace(req.Email)); err != nil {
		h.logOutcome("promote", actor, err)
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Admin) Demote(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.access.Demote(r.Context(), actor, id); err != nil {
		h.logOutcome("demote", actor, err)
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Admin) SetAdminStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req adminStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.IsAdmin == nil {
		WriteError(w, fmt.Errorf("%w: is_admin is required", model.ErrInvalidInput))
		return
	}

	if err := h.access.SetAdminStatus(r.Context(), actor, id, *req.IsAdmin); err != nil {
		h.logOutcome("set admin status", actor, err)
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Admin) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.access.DeleteAccount(r.Context(), actor, id); err != nil {
		h.logOutcome("delete account", actor, err)
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Activity returns one page of the ledger, newest first. Pass next_cursor back as ?cursor=.
func (h *Admin) Activity(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	after, err := decodeCursor(query.Get("cursor"))
	if err != nil {
		WriteError(w, err)
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			WriteError(w, fmt.Errorf("%w: malformed limit", model.ErrInvalidInput))
			return
		}
	}

	records, next, err := h.ledger.Page(r.Context(), after, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := ActivityPageResponse{Records: make([]ActivityResponse, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, toActivityResponse(rec))
	}
	if next != nil {
		resp.NextCursor = encodeCursor(*next)
	}

	WriteJSON(w, http.StatusOK, resp)
}

func (h *Admin) actor(w http.ResponseWriter, r *http.Request) (model.Profile, bool) {
	actor, ok := h.contextManager.GetProfileFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrInvalidCredentials)
	}
	return actor, ok
}

func (h *Admin) logOutcome(op string, actor model.Profile, err error) {
	h.logger.Info("Admin handler: operation rejected",
		"op", op,
		"actor_id", actor.ID,
		"outcome", model.OutcomeOf(err).String())
}

func encodeCursor(c model.ActivityCursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(c.Seq, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (*model.ActivityCursor, error) {
	if s == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", model.ErrInvalidInput)
	}

	createdAt, seq, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, fmt.Errorf("%w: malformed cursor", model.ErrInvalidInput)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", model.ErrInvalidInput)
	}
	n, err := strconv.ParseInt(seq, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", model.ErrInvalidInput)
	}

	return &model.ActivityCursor{CreatedAt: ts, Seq: n}, nil
}
