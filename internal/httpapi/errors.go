package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/service/account"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// Set for entry validation failures.
	Field       string           `json:"field,omitempty"`
	Line        *int             `json:"line,omitempty"`
	AccountID   *uuid.UUID       `json:"account_id,omitempty"`
	TotalDebit  *decimal.Decimal `json:"total_debit,omitempty"`
	TotalCredit *decimal.Decimal `json:"total_credit,omitempty"`
	Difference  *decimal.Decimal `json:"difference,omitempty"`
	// Set for request-shape failures, keyed by JSON field.
	Fields map[string]string `json:"fields,omitempty"`
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }

// unprocessable writes a rejected entry with everything the editor needs to
// point at the offending line.
func unprocessable(w http.ResponseWriter, ve *errs.ValidationError) {
	resp := errorResponse{Error: ve.Error(), Code: string(ve.Kind), Field: ve.Field}
	if ve.Line >= 0 {
		line := ve.Line
		resp.Line = &line
	}
	if ve.Kind == errs.KindUnknownAccount {
		id := ve.AccountID
		resp.AccountID = &id
	}
	if ve.Kind == errs.KindUnbalanced {
		debit, credit, diff := ve.TotalDebit, ve.TotalCredit, ve.Difference.Round(2)
		resp.TotalDebit, resp.TotalCredit, resp.Difference = &debit, &credit, &diff
	}
	toJSON(w, http.StatusUnprocessableEntity, resp)
}

// writeServiceErr maps service-layer errors onto HTTP statuses.
func (s *Server) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		entriesRejectedTotal.WithLabelValues(string(ve.Kind)).Inc()
		unprocessable(w, ve)
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, err.Error())
	case errors.Is(err, account.ErrCodeExists), errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, errs.ErrImmutable):
		writeErr(w, http.StatusConflict, "account type cannot change", "immutable")
	case errors.Is(err, errs.ErrDanglingReference):
		writeErr(w, http.StatusConflict, err.Error(), "dangling_account_reference")
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
	}
}
