package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/pickimport/internal/core"
)

//go:generate templ generate

// importPageParams is what the upload page shows.
type importPageParams struct {
	Picking core.Picking
	Result  *core.ImportResult
	Error   *core.UserMessage
	Line    int // sheet line of a row-level error, 0 if none
}

// handleImportPage renders the upload form for a picking.
//
//	GET /pickings/{pickingID}/import
func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	pickingID, ok := pickingIDParam(w, r)
	if !ok {
		return
	}

	picking, err := s.service.LoadPicking(r.Context(), pickingID)
	if err != nil {
		s.renderPageError(w, r, core.Picking{ID: pickingID}, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, importPageParams{Picking: picking})
}

// handleImportForm handles the form post from the upload page. Errors are
// rendered inline with the form instead of as JSON.
//
//	POST /pickings/{pickingID}/import
func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	pickingID, ok := pickingIDParam(w, r)
	if !ok {
		return
	}

	picking, err := s.service.LoadPicking(r.Context(), pickingID)
	if err != nil {
		s.renderPageError(w, r, core.Picking{ID: pickingID}, err)
		return
	}

	file, dryRun, err := s.readUpload(w, r)
	if err != nil {
		s.renderPageError(w, r, picking, err)
		return
	}

	ctx := withRequestMeta(r.Context(), r)
	result, err := s.service.ImportFile(ctx, pickingID, file, core.ImportOptions{DryRun: dryRun})
	if err != nil {
		s.renderPageError(w, r, picking, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, importPageParams{Picking: picking, Result: result})
}

func (s *Server) renderPageError(w http.ResponseWriter, r *http.Request, picking core.Picking, err error) {
	msg := core.MapError(err)
	status := statusForCode(msg.Code)
	logRequestError(r, err, msg.Code, status)

	params := importPageParams{Picking: picking, Error: &msg}
	if _, line, _, ok := core.RowDetails(err); ok {
		params.Line = line
	}
	s.renderPage(w, r, status, params)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, params importPageParams) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := importPage(params).Render(r.Context(), w); err != nil {
		logRequestError(r, err, "", status)
	}
}

// pageTitle names the picking when it is known.
func pageTitle(p core.Picking) string {
	if p.Name != "" {
		return "Import lines into " + p.Name
	}
	return fmt.Sprintf("Import lines into picking %d", p.ID)
}

func resultSummary(res *core.ImportResult) string {
	if res.DryRun {
		return fmt.Sprintf("%d lines would be created from %s", len(res.Lines), res.FileName)
	}
	return fmt.Sprintf("%d lines created from %s", res.Inserted, res.FileName)
}
