package api

import "net/http"

// handleGetCart returns the session cart's contents and subtotal.
func (s *Server) handleGetCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"lines":    s.cart.Lines(),
		"size":     s.cart.Size(),
		"subtotal": s.cart.Subtotal(),
	})
}

// handleClearCart empties the session cart, as at the end of a session.
func (s *Server) handleClearCart(w http.ResponseWriter, _ *http.Request) {
	s.cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}
