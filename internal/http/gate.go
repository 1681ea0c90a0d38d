package http

import (
	"net/http"

	"financemei/internal/log"
	"financemei/internal/subscription"
)

// requireOwner rejects requests without an owner header and tags the
// request logger with the owner.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := ownerOf(r)
		if owner == "" {
			badRequest(w, "missing "+OwnerHeader+" header")
			return
		}
		logger := log.FromContext(r.Context()).With(log.FieldOwnerID, owner)
		next.ServeHTTP(w, r.WithContext(log.NewContext(r.Context(), logger)))
	})
}

// accessGate derives the owner's access state, opening a trial on first
// contact, and answers 402 for every path but the plan page once access has
// expired.
func (s *Server) accessGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := ownerOf(r)
		sub, err := s.ledger.EnsureSubscription(ctx, owner)
		if err != nil {
			writeError(w, r, err)
			return
		}
		st := subscription.Derive(sub, s.now())
		if !subscription.Gate(st, r.URL.Path) {
			log.FromContext(ctx).InfoContext(ctx, "Access expired, redirecting to plan page",
				log.FieldPresentation, st.Presentation,
				log.FieldPath, r.URL.Path)
			writeJSON(w, http.StatusPaymentRequired, map[string]string{"redirect": subscription.PlanPath})
			return
		}
		next.ServeHTTP(w, r)
	})
}
