package httpapi

import (
	"net/http"
	"strings"

	"github.com/refuelos/ledger/internal/ledger"
)

// GET /v1/accounts?type=&as_of=
// Balances are recomputed from posted entries on every call.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateParam(r, "as_of")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var typ ledger.AccountType
	if t := r.URL.Query().Get("type"); t != "" {
		typ = ledger.AccountType(strings.ToUpper(t))
		if !typ.Valid() {
			badRequest(w, "invalid type")
			return
		}
	}
	accs, err := s.reports.AccountBalances(r.Context(), asOf)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := listAccountsResponse{Items: make([]accountResponse, 0, len(accs))}
	for _, a := range accs {
		if typ != "" && a.Type != typ {
			continue
		}
		out.Items = append(out.Items, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/accounts/{id}
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.accounts.Get(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	accs, err := s.reports.AccountBalances(r.Context(), nil)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	for _, a := range accs {
		if a.ID == id {
			toJSON(w, http.StatusOK, toAccountResponse(a))
			return
		}
	}
	notFound(w)
}

// POST /v1/accounts
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyPostAccount).(ledger.Account)
	acc, err := s.accounts.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// PATCH /v1/accounts/{id}
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchAccountRequest
	if !s.decode(w, r, &req) {
		return
	}
	cur, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if req.Code != nil {
		cur.Code = *req.Code
	}
	if req.Name != nil {
		cur.Name = *req.Name
	}
	if req.Type != nil {
		cur.Type = ledger.AccountType(*req.Type)
	}
	if req.Classification != nil {
		cur.Classification = ledger.Classification(*req.Classification)
	}
	acc, err := s.accounts.Update(r.Context(), cur)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// DELETE /v1/accounts/{id}
// Entries that reference the account are kept and show up as dangling in reports.
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
