package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
	"github.com/king-kite/nexthrms-v2-sub002/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for the form
// boundaries and headers.
const multipartOverhead = 1 << 20

// multipartMemory is how much of a form is buffered in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// handleHealth reports whether the store is reachable and how busy the
// import limiter is.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"imports": s.service.Limiter().Status(),
	}
	if err := s.service.Ping(r.Context()); err != nil {
		status["status"] = "unavailable"
		status["error"] = core.MapError(err).Message
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleListKinds returns all registered import kinds.
func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListKinds())
}

// handleLimiterStatus returns the import limiter snapshot.
func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Limiter().Status())
}

// handleHistory returns recent imports, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "limit must be a non-negative integer",
				Message: "limit must be a non-negative integer",
				Code:    "REQ001",
			})
			return
		}
		limit = n
	}

	logs, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if logs == nil {
		logs = []core.ImportLog{}
	}

	if isHTMX(r) {
		s.render(w, r, templates.History(logs))
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleImportTable imports, or with ?dry_run=1 only checks, one file of
// the kind named in the path.
func (s *Server) handleImportTable(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	ctx := withRequester(r.Context(), r)
	var res *core.ImportResult
	if dryRun(r) {
		res, err = s.service.CheckTable(ctx, kind, name, data)
	} else {
		res, err = s.service.ImportTable(ctx, kind, name, data)
	}
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		s.render(w, r, templates.ImportResult(res))
		return
	}
	writeJSON(w, resultStatus(res.DryRun), res)
}

// handleImportArchive imports, or with ?dry_run=1 only checks, a zip
// holding the employees and permissions files.
func (s *Server) handleImportArchive(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	ctx := withRequester(r.Context(), r)
	var res *core.ArchiveImportResult
	if dryRun(r) {
		res, err = s.service.CheckArchive(ctx, name, data)
	} else {
		res, err = s.service.ImportArchive(ctx, name, data)
	}
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		s.render(w, r, templates.ArchiveResult(res))
		return
	}
	writeJSON(w, resultStatus(res.DryRun), res)
}

// readUpload returns the name and content of the multipart "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return "", nil, core.OverLimitError(maxSize)
		}
		return "", nil, fmt.Errorf("%w: %v", errInvalidForm, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errNoFile
	}
	defer file.Close()

	if header.Size > maxSize {
		return "", nil, core.SizeError(header.Size, maxSize)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read file: %v", errInvalidForm, err)
	}
	return header.Filename, data, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// dryRun reports whether the dry_run query parameter is set to a true
// value ("1", "true", ...).
func dryRun(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	return err == nil && v
}

// resultStatus is 201 for stored imports and 200 for checks.
func resultStatus(dryRun bool) int {
	if dryRun {
		return http.StatusOK
	}
	return http.StatusCreated
}
