package httpserver

import "net/http"

func (s *Server) handleSearchIMDB(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Query parameter is required")
		return
	}

	result, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
