package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/refuelos/ledger/internal/ledger"
)

type ctxKey string

const (
	ctxKeyEntry       ctxKey = "validatedEntry"
	ctxKeyListEntries ctxKey = "validatedListEntries"
	ctxKeyPostAccount ctxKey = "validatedPostAccount"
	ctxKeyPeriod      ctxKey = "validatedPeriod"
	ctxKeyAsOf        ctxKey = "validatedAsOf"
)

// requireJSON ensures the request has Content-Type application/json (optionally with params).
// Writes 415 if not JSON and returns false; otherwise returns true.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	mime := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	if mime != "application/json" {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
		return false
	}
	return true
}

// decode reads a JSON body into dst and checks its struct tags. It writes the
// error response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !requireJSON(w, r) {
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			badRequest(w, err.Error())
			return false
		}
		fields := make(map[string]string, len(ves))
		for _, fe := range ves {
			ns := fe.Namespace()
			if i := strings.IndexByte(ns, '.'); i >= 0 {
				ns = ns[i+1:]
			}
			fields[ns] = fe.Tag()
		}
		toJSON(w, http.StatusBadRequest, errorResponse{Error: "request validation failed", Code: "validation_error", Fields: fields})
		return false
	}
	return true
}

// validateEntryBody decodes an entry body and stores the candidate entry in
// the request context. Accounting rules are checked by the handler.
func (s *Server) validateEntryBody() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req entryRequest
			if !s.decode(w, r, &req) {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyEntry, toEntryDomain(req))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseDateParam reads an optional YYYY-MM-DD query parameter.
func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := ledger.ParseDate(raw)
	if err != nil {
		return nil, errors.New("invalid " + name + ": want YYYY-MM-DD")
	}
	return &t, nil
}

func parsePeriod(r *http.Request) (ledger.DateRange, error) {
	start, err := parseDateParam(r, "start_date")
	if err != nil {
		return ledger.DateRange{}, err
	}
	end, err := parseDateParam(r, "end_date")
	if err != nil {
		return ledger.DateRange{}, err
	}
	if start != nil && end != nil && start.After(*end) {
		return ledger.DateRange{}, errors.New("start_date must not be after end_date")
	}
	return ledger.Between(start, end), nil
}

// validateListEntries parses the optional date window for GET /entries.
func (s *Server) validateListEntries() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rng, err := parsePeriod(r)
			if err != nil {
				badRequest(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyListEntries, rng)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePeriod parses start_date/end_date for period reports.
func (s *Server) validatePeriod() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rng, err := parsePeriod(r)
			if err != nil {
				badRequest(w, err.Error())
				return
			}
			if !validFormat(r) {
				badRequest(w, "format must be json or xlsx")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPeriod, rng)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateAsOf parses as_of and format for point-in-time reports. as_of
// defaults to today (UTC).
func (s *Server) validateAsOf() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			asOf, err := parseDateParam(r, "as_of")
			if err != nil {
				badRequest(w, err.Error())
				return
			}
			if !validFormat(r) {
				badRequest(w, "format must be json or xlsx")
				return
			}
			day := ledger.DateOf(time.Now().UTC())
			if asOf != nil {
				day = *asOf
			}
			ctx := context.WithValue(r.Context(), ctxKeyAsOf, day)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostAccount parses and validates POST /accounts body and stores the account.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postAccountRequest
			if !s.decode(w, r, &req) {
				return
			}
			in := toAccountDomain(req)
			if err := s.accounts.ValidateCreate(in); err != nil {
				badRequest(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// pathID parses the {id} URL parameter, writing 400 when malformed.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func validFormat(r *http.Request) bool {
	switch r.URL.Query().Get("format") {
	case "", "json", "xlsx":
		return true
	}
	return false
}

func wantsXLSX(r *http.Request) bool { return r.URL.Query().Get("format") == "xlsx" }
