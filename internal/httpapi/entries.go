package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/refuelos/ledger/internal/errs"
	"github.com/refuelos/ledger/internal/ledger"
	"github.com/refuelos/ledger/internal/service/journal"
)

const idempotencyHeader = "Idempotency-Key"

// GET /v1/entries?start_date=&end_date=
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	rng, _ := r.Context().Value(ctxKeyListEntries).(ledger.DateRange)
	entries, err := s.journal.List(r.Context(), rng)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := listEntriesResponse{Items: make([]entryResponse, 0, len(entries))}
	for _, e := range entries {
		out.Items = append(out.Items, toEntryResponse(e, nil))
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/entries/{id}
func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.journal.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(e, nil))
}

// POST /v1/entries
// A repeated Idempotency-Key returns the entry created by the first request.
// The key is claimed before posting; a claim whose entry is not there yet
// (still being posted, or deleted since) answers 409.
func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyEntry).(ledger.JournalEntry)
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" || s.idem == nil {
		s.createEntry(w, r, in)
		return
	}

	in.ID = uuid.New()
	owner, claimed, err := s.idem.ClaimIdempotencyKey(r.Context(), key, in.ID)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if !claimed {
		e, err := s.journal.Get(r.Context(), owner)
		switch {
		case err == nil:
			toJSON(w, http.StatusOK, toEntryResponse(e, nil))
		case errors.Is(err, errs.ErrNotFound):
			writeErr(w, http.StatusConflict, "a request with this Idempotency-Key has no posted entry", "idempotency_conflict")
		default:
			s.writeServiceErr(w, r, err)
		}
		return
	}
	if !s.createEntry(w, r, in) {
		// free the key so a corrected retry can post
		if err := s.idem.ReleaseIdempotencyKey(context.WithoutCancel(r.Context()), key, in.ID); err != nil {
			s.log.WarnContext(r.Context(), "idempotency key not released", "key", key, "entry_id", in.ID, "err", err)
		}
	}
}

// createEntry posts in and writes the response, reporting whether it succeeded.
func (s *Server) createEntry(w http.ResponseWriter, r *http.Request, in ledger.JournalEntry) bool {
	e, warnings, err := s.journal.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return false
	}
	entriesPostedTotal.Inc()
	toJSON(w, http.StatusCreated, toEntryResponse(e, warnings))
	return true
}

// PUT /v1/entries/{id}
func (s *Server) putEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, _ := r.Context().Value(ctxKeyEntry).(ledger.JournalEntry)
	e, warnings, err := s.journal.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	entriesPostedTotal.Inc()
	toJSON(w, http.StatusOK, toEntryResponse(e, warnings))
}

// DELETE /v1/entries/{id}
func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.journal.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/entries/validate
// Runs the full check without persisting anything.
func (s *Server) validateEntry(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyEntry).(ledger.JournalEntry)
	e, warnings, err := s.journal.Validate(r.Context(), in)
	if err != nil {
		var ve *errs.ValidationError
		if errors.As(err, &ve) {
			unprocessable(w, ve)
			return
		}
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, validateEntryResponse{Valid: true, Entry: toEntryResponse(e, warnings)})
}

// POST /v1/entries/preview
// Live totals for a form that is still being filled in. Never rejects on
// balance; negative amounts are refused the way the editor refuses them.
func (s *Server) previewEntry(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !s.decode(w, r, &req) {
		return
	}
	lines := toLines(req.Details)
	for i, ln := range lines {
		switch {
		case ln.Debit.IsNegative():
			unprocessable(w, errs.InvalidAmount(i, "debit"))
			return
		case ln.Credit.IsNegative():
			unprocessable(w, errs.InvalidAmount(i, "credit"))
			return
		}
	}
	st := journal.StatusOf(lines)
	dual := st.DualSided
	if dual == nil {
		dual = []int{}
	}
	toJSON(w, http.StatusOK, previewResponse{
		TotalDebit:  st.TotalDebit,
		TotalCredit: st.TotalCredit,
		Difference:  st.Difference,
		IsBalanced:  st.IsBalanced,
		DualSided:   dual,
	})
}
