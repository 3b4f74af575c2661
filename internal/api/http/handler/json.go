package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/studyvault-server/internal/model"
)

const maxJSONBody = 1 << 20

// WriteJSON encodes value with the given status.
func WriteJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", model.ErrInvalidInput)
	}
	return nil
}

type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileResponse(p model.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		IsAdmin:   p.IsAdmin,
		CreatedAt: p.CreatedAt,
	}
}

func toProfileResponses(profiles []model.Profile) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileResponse(p))
	}
	return out
}

type DocumentResponse struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	FileName       string    `json:"file_name"`
	ContentType    string    `json:"content_type,omitempty"`
	SizeBytes      int64     `json:"size_bytes"`
	UploadedBy     uuid.UUID `json:"uploaded_by"`
	UploadedByName string    `json:"uploaded_by_name"`
	UploadedAt     time.Time `json:"uploaded_at"`
	Subject        *string   `json:"subject"`
	Semester       *string   `json:"semester"`
	DownloadURL    string    `json:"download_url,omitempty"`
}

func toDocumentResponse(d model.DocumentRecord) DocumentResponse {
	return DocumentResponse{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		FileName:       d.FileName,
		ContentType:    d.ContentType,
		SizeBytes:      d.SizeBytes,
		UploadedBy:     d.UploadedBy,
		UploadedByName: d.UploadedByName,
		UploadedAt:     d.UploadedAt,
		Subject:        d.Subject,
		Semester:       d.Semester,
	}
}

type ActivityResponse struct {
	ID           uuid.UUID  `json:"id"`
	ActionType   string     `json:"action_type"`
	ActorID      uuid.UUID  `json:"actor_id"`
	ActorEmail   string     `json:"actor_email"`
	ActorName    string     `json:"actor_name"`
	TargetID     *uuid.UUID `json:"target_id"`
	TargetEmail  *string    `json:"target_email"`
	TargetName   *string    `json:"target_name"`
	DocumentName *string    `json:"document_name"`
	Message      string     `json:"message"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toActivityResponse(r model.ActivityRecord) ActivityResponse {
	return ActivityResponse{
		ID:           r.ID,
		ActionType:   string(r.ActionType),
		ActorID:      r.ActorID,
		ActorEmail:   r.ActorEmail,
		ActorName:    r.ActorName,
		TargetID:     r.TargetID,
		TargetEmail:  r.TargetEmail,
		TargetName:   r.TargetName,
		DocumentName: r.DocumentName,
		Message:      r.Message,
		CreatedAt:    r.CreatedAt,
	}
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func toTokenResponse(pair model.TokenPair) TokenResponse {
	return TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, TokenType: "Bearer"}
}
