// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/models"
	"github.com/tomtom215/wardbook/internal/validation"
)

// SignInRequest is the body of POST /api/v1/session.
type SignInRequest struct {
	Token string `json:"token" validate:"required,jwt"`
}

// GetSession returns the signed-in physician.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.session.UserID()
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "NOT_SIGNED_IN", "Not signed in", nil)
		return
	}
	respondOK(w, r, h.sessionInfo(uid))
}

// SignIn validates a session token and makes its subject the current user.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondBodyError(w, r, err)
		return
	}

	var req SignInRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "Body must be a JSON object", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: metadata(r),
			Error:    &models.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details},
		})
		return
	}

	claims, err := h.session.SignIn(req.Token)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("sign-in rejected")
		respondError(w, r, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user", logging.MaskID(claims.UserID())).
		Msg("signed in")
	respondOK(w, r, h.sessionInfo(claims.UserID()))
}

// SignOut ends the session. Pending local changes are flushed first so they
// are pushed under the outgoing user.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Flush(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("flush before sign-out failed")
	}
	h.session.SignOut()
	respondOK(w, r, nil)
}

func (h *Handler) sessionInfo(uid string) models.SessionInfo {
	info := models.SessionInfo{UserID: uid}
	if c := h.session.Claims(); c != nil {
		info.Name = c.Name
		if c.ExpiresAt != nil {
			info.ExpiresAt = c.ExpiresAt.Time
		}
	}
	return info
}
