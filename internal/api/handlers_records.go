package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListRecords lists records held by the record store.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	store := s.orchestrator.RecordStore()
	if store == nil {
		jsonError(w, "record store not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := store.ListRecords(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list records: "+err.Error(), http.StatusBadGateway)
		return
	}

	docs := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		docs = append(docs, map[string]any{
			"doc_id":    rec.DocID,
			"source":    rec.Source,
			"valid":     rec.Valid,
			"parsed_at": rec.ParsedAt,
			"name":      rec.Record["name"],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": docs})
}

// handleDeleteRecord removes a stored record.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	store := s.orchestrator.RecordStore()
	if store == nil {
		jsonError(w, "record store not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	if err := store.DeleteRecord(r.Context(), docID); err != nil {
		jsonError(w, "failed to delete record: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}
