package http

import (
	"net/http"

	"financemei/internal/core"
	"financemei/internal/log"

	"github.com/gorilla/mux"
)

type entryRequest struct {
	Kind        core.Kind  `json:"kind"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	OccurredOn  core.Date  `json:"occurred_on"`
	Category    string     `json:"category"`
	Settled     bool       `json:"settled"`
	SettledOn   core.Date  `json:"settled_on"`
}

type obligationRequest struct {
	Kind        core.ObligationKind `json:"kind"`
	Description string              `json:"description"`
	Amount      core.Money          `json:"amount"`
	DueOn       core.Date           `json:"due_on"`
	Notes       string              `json:"notes"`
}

type fulfillRequest struct {
	On core.Date `json:"on"`
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.OccurredOn.IsZero() {
		req.OccurredOn = s.today()
	}
	e := core.LedgerEntry{
		OwnerID:     ownerOf(r),
		Kind:        req.Kind,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		OccurredOn:  req.OccurredOn,
		Category:    sanitizeInput(req.Category),
		Settled:     req.Settled,
		SettledOn:   req.SettledOn,
	}
	id, err := s.ledger.RecordEntry(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Entry recorded",
		log.NewFields().WithOperation(log.OpCreate).WithEntry(id, string(e.Kind), e.Category, e.Amount.Cents).ToSlice()...)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ledger.DeleteEntry(r.Context(), ownerOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var req obligationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.ledger.AddObligation(r.Context(), core.Obligation{
		OwnerID:     ownerOf(r),
		Kind:        req.Kind,
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		DueOn:       req.DueOn,
		Notes:       sanitizeInput(req.Notes),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleFulfillObligation accepts an optional body naming the day; the
// default is today.
func (s *Server) handleFulfillObligation(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.On.IsZero() {
		req.On = s.today()
	}
	o, e, err := s.ledger.FulfillObligation(r.Context(), ownerOf(r), mux.Vars(r)["id"], req.On)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Obligation fulfilled",
		log.NewFields().WithOperation(log.OpFulfill).WithEntry(e.ID, string(e.Kind), e.Category, e.Amount.Cents).ToSlice()...)
	writeJSON(w, http.StatusOK, map[string]any{"obligation": o, "entry": e})
}
