package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/pickimport/internal/core"
)

// errNoFile maps to FILE004.
var errNoFile = errors.New("no file provided")

// multipartOverhead is the slack allowed on top of the file size limit for
// form boundaries, headers and the other fields.
const multipartOverhead = 64 * 1024

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// importRequest is the JSON form of an upload.
type importRequest struct {
	FileName string `json:"filename"`
	File     string `json:"file"` // base64, optionally a data URL
	DryRun   bool   `json:"dryRun"`
}

// handleImport runs an import from a multipart or JSON upload.
//
//	POST /api/pickings/{pickingID}/import[?dry_run=true]
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	pickingID, ok := pickingIDParam(w, r)
	if !ok {
		return
	}

	file, dryRun, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if q := r.URL.Query().Get("dry_run"); q != "" {
		dryRun, _ = strconv.ParseBool(q)
	}

	ctx := withRequestMeta(r.Context(), r)
	result, err := s.service.ImportFile(ctx, pickingID, file, core.ImportOptions{DryRun: dryRun})
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.DryRun {
		status = http.StatusOK
	}
	writeJSONStatus(w, status, result)
}

// handleImportHistory lists the import log of a picking, newest first.
//
//	GET /api/pickings/{pickingID}/imports[?limit=N]
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	pickingID, ok := pickingIDParam(w, r)
	if !ok {
		return
	}

	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)
	records, err := s.service.ImportHistory(r.Context(), pickingID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.ImportRecord{}
	}
	writeJSON(w, records)
}

// handleDownloadTemplate serves an empty workbook with the required header.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Template()
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, core.TemplateFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// healthResponse is the body of /healthz.
type healthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database"`
	Imports  core.LimiterStatus `json:"imports"`
}

// handleHealth reports database reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Imports: s.service.LimiterStatus()}
	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Database = "error"
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}

// readUpload extracts the file from a JSON or multipart body. The body is
// capped so an oversized upload fails before it is buffered.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (core.UploadedFile, bool, error) {
	maxSize := s.cfg.Import.MaxFileSize
	if maxSize <= 0 {
		maxSize = core.DefaultMaxFileSize
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		// base64 grows the payload by a third
		r.Body = http.MaxBytesReader(w, r.Body, maxSize/3*4+multipartOverhead)
		return readJSONUpload(r)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	return readMultipartUpload(r, maxSize)
}

func readJSONUpload(r *http.Request) (core.UploadedFile, bool, error) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isBodyTooLarge(err) {
			return core.UploadedFile{}, false, core.ErrFileTooLarge
		}
		return core.UploadedFile{}, false, &core.DecodeError{FileName: req.FileName, Err: err}
	}
	if strings.TrimSpace(req.File) == "" {
		return core.UploadedFile{}, false, errNoFile
	}

	file, err := core.DecodeBase64(req.FileName, req.File)
	return file, req.DryRun, err
}

func readMultipartUpload(r *http.Request, maxSize int64) (core.UploadedFile, bool, error) {
	if err := r.ParseMultipartForm(maxSize); err != nil {
		if isBodyTooLarge(err) {
			return core.UploadedFile{}, false, core.ErrFileTooLarge
		}
		return core.UploadedFile{}, false, errNoFile
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return core.UploadedFile{}, false, errNoFile
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return core.UploadedFile{}, false, &core.DecodeError{FileName: header.Filename, Err: err}
	}

	dryRun, _ := strconv.ParseBool(r.FormValue("dry_run"))
	return core.UploadedFile{Name: header.Filename, Data: data}, dryRun, nil
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

// pickingIDParam parses {pickingID}. On failure it writes a 400 and
// returns false.
func pickingIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "pickingID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(w, fmt.Sprintf("Invalid picking id %q", raw), "Use the numeric id of the picking")
		return 0, false
	}
	return id, true
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
