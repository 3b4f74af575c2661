package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/studyvault-server/internal/model"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error          string `json:"error"`
	Outcome        string `json:"outcome,omitempty"`
	PartialFailure bool   `json:"partial_failure,omitempty"`
}

var outcomeMessages = map[model.Outcome]string{
	model.OutcomeUnauthorized:              "administrator role required",
	model.OutcomeNotFound:                  model.ErrNotFound.Error(),
	model.OutcomeAlreadyAdmin:              model.ErrAlreadyAdmin.Error(),
	model.OutcomeSelfModificationForbidden: model.ErrSelfModificationForbidden.Error(),
	model.OutcomeSelfDeletionForbidden:     model.ErrSelfDeletionForbidden.Error(),
}

// Status maps an operation error onto an HTTP status code.
func Status(err error) int {
	if isAuthenticationError(err) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, model.ErrAlreadyExists) {
		return http.StatusConflict
	}

	switch model.OutcomeOf(err) {
	case model.OutcomeSuccess:
		return http.StatusOK
	case model.OutcomeUnauthorized:
		return http.StatusForbidden
	case model.OutcomeNotFound:
		return http.StatusNotFound
	case model.OutcomeAlreadyAdmin:
		return http.StatusConflict
	case model.OutcomeSelfModificationForbidden, model.OutcomeSelfDeletionForbidden:
		return http.StatusUnprocessableEntity
	case model.OutcomeInvalidInput:
		return http.StatusBadRequest
	case model.OutcomePartialFailure:
		return http.StatusInternalServerError
	default:
		if model.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
}

func isAuthenticationError(err error) bool {
	return errors.Is(err, model.ErrInvalidCredentials) ||
		errors.Is(err, model.ErrTokenRevoked) ||
		errors.Is(err, model.ErrTokenExpired) ||
		errors.Is(err, model.ErrTokenMismatch)
}

// WriteError writes err as an ErrorResponse. Upstream details stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	status := Status(err)
	outcome := model.OutcomeOf(err)

	resp := ErrorResponse{Outcome: outcome.String()}
	switch {
	case status == http.StatusUnauthorized:
		resp.Error = "authentication failed"
		resp.Outcome = ""
	case outcome == model.OutcomeInvalidInput:
		resp.Error = err.Error()
	case outcome == model.OutcomePartialFailure:
		resp.Error = "operation partially applied"
		resp.PartialFailure = true
	case outcome == model.OutcomeUpstreamFailure:
		resp.Error = "upstream service unavailable"
	default:
		resp.Error = outcomeMessages[outcome]
	}

	WriteJSON(w, status, resp)
}
