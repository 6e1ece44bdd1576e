package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/resumex/internal/export"
	"github.com/dgallion1/resumex/internal/extract"
	"github.com/dgallion1/resumex/internal/pipeline"
)

type parseResponse struct {
	DocID         string         `json:"doc_id"`
	Valid         bool           `json:"valid"`
	Record        extract.Record `json:"record"`
	Warnings      []string       `json:"warnings"`
	Found         []string       `json:"found"`
	Missing       []string       `json:"missing"`
	MissingFields []string       `json:"missing_fields"`
	Error         string         `json:"error,omitempty"`
}

// handleParse parses one upload synchronously. With ?format=yaml or xlsx a
// valid record is returned in that encoding instead of the JSON envelope.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.parseForm(w, r, 1) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	filename, data, ok := s.singleUpload(w, r)
	if !ok {
		return
	}

	out, err := s.orchestrator.ParseSync(filename, data)
	if err != nil {
		s.log.Warn("sync parse failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := parseResponse{
		DocID:         out.DocID,
		Valid:         out.Validation == nil,
		Record:        out.Result.Record,
		Warnings:      pipeline.WarningStrings(out.Result.Warnings),
		Found:         nonNil(out.Result.Found),
		Missing:       nonNil(out.Result.Missing),
		MissingFields: []string{},
	}
	var rfm *extract.RequiredFieldMissingError
	if errors.As(out.Validation, &rfm) {
		resp.MissingFields = rfm.Fields
	}
	if out.Validation != nil {
		resp.Error = out.Validation.Error()
		if s.orchestrator.Strict() {
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
	}

	if format != export.FormatJSON {
		s.writeRecord(w, format, filename, out.Result.Record)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeRecord streams rec as an attachment in the requested format.
func (s *Server) writeRecord(w http.ResponseWriter, format export.Format, source string, rec extract.Record) {
	name := strings.TrimSuffix(source, filepath.Ext(source)) + format.Ext()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	var err error
	if format == export.FormatXLSX {
		err = export.XLSX(w, export.Named{Source: source, Record: rec})
	} else {
		err = export.Write(w, format, rec)
	}
	if err != nil {
		s.log.Error("record export failed", "format", format, "source", source, "error", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
