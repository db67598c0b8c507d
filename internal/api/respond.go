// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rollcall/internal/attendance"
	"github.com/tomtom215/rollcall/internal/logging"
	"github.com/tomtom215/rollcall/internal/models"
	"github.com/tomtom215/rollcall/internal/validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// API error codes. VALIDATION_ERROR is shared with the validation package.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeAlreadyMarked    = "ALREADY_MARKED"
	CodeAlreadyFinalized = "ALREADY_FINALIZED"
	CodeInvalidState     = "INVALID_STATE"
	CodeLedgerError      = "LEDGER_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, response *models.APIResponse) {
	response.Metadata.RequestID = logging.RequestIDFromContext(ctx)
	if response.Metadata.Timestamp.IsZero() {
		response.Metadata.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(response)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data interface{}) {
	respondJSON(ctx, w, status, &models.APIResponse{Status: "success", Data: data})
}

// respondList is respondData with metadata.count set.
func respondList(ctx context.Context, w http.ResponseWriter, data interface{}, count int) {
	respondJSON(ctx, w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Count: &count},
	})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(ctx).Error().
			Str("code", code).
			Str("error", logging.SanitizeValue(err.Error())).
			Msg("API error")
	}
	respondAPIError(ctx, w, status, &models.APIError{Code: code, Message: message})
}

func respondAPIError(ctx context.Context, w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(ctx, w, status, &models.APIResponse{Status: "error", Error: apiErr})
}

// kindStatus maps an attendance error kind to its HTTP status and code.
func kindStatus(kind attendance.Kind) (int, string) {
	switch kind {
	case attendance.KindValidation:
		return http.StatusBadRequest, validation.CodeValidation
	case attendance.KindForbidden:
		return http.StatusForbidden, CodeForbidden
	case attendance.KindNotFound, attendance.KindRecordNotFound, attendance.KindLedgerNotFound:
		return http.StatusNotFound, CodeNotFound
	case attendance.KindConflict:
		return http.StatusConflict, CodeConflict
	case attendance.KindAlreadyMarked:
		return http.StatusConflict, CodeAlreadyMarked
	case attendance.KindAlreadyFinalized:
		return http.StatusConflict, CodeAlreadyFinalized
	case attendance.KindInvalidState, attendance.KindNotPresent:
		return http.StatusConflict, CodeInvalidState
	case attendance.KindLedgerSubmitFailed, attendance.KindLedgerFinalizeFailed, attendance.KindLedgerUnavailable:
		return http.StatusBadGateway, CodeLedgerError
	case attendance.KindInfrastructure, attendance.KindUnknown:
		return http.StatusInternalServerError, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondServiceError writes the envelope for an error returned by the
// attendance service. Infrastructure details are logged, not returned.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var svcErr *attendance.Error
	if !errors.As(err, &svcErr) {
		respondError(ctx, w, http.StatusInternalServerError, CodeInternal, "internal error", err)
		return
	}

	status, code := kindStatus(svcErr.Kind)
	message := svcErr.Message
	if status >= http.StatusInternalServerError {
		logging.Ctx(ctx).Error().Err(err).Str("kind", svcErr.Kind.String()).Msg("Request failed")
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	if message == "" {
		message = svcErr.Kind.String()
	}
	respondAPIError(ctx, w, status, &models.APIError{
		Code:    code,
		Message: message,
		Details: map[string]interface{}{"kind": svcErr.Kind.String()},
	})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	ctx := r.Context()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		respondError(ctx, w, http.StatusBadRequest, CodeBadRequest, msg, nil)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondAPIError(ctx, w, http.StatusBadRequest, verr.ToAPIError())
		return false
	}
	return true
}
