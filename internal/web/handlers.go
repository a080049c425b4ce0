package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/subcheck/internal/config"
	"github.com/JonMunkholm/subcheck/internal/core"
	"github.com/JonMunkholm/subcheck/internal/history"
	"github.com/JonMunkholm/subcheck/internal/logging"
	"github.com/JonMunkholm/subcheck/internal/render"
	"github.com/go-chi/chi/v5"
)

const (
	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to a temp file.
	multipartMemory = 32 << 20

	// multipartOverhead covers form boundaries and headers on top of the
	// file itself.
	multipartOverhead = 1 << 20
)

var (
	errNoFile          = errors.New("no file provided")
	errHistoryDisabled = errors.New("run history is disabled")
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

// handleTemplate serves an empty submission containing only the header.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	comma, err := s.delimiter(r.URL.Query().Get("delimiter"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if comma == 0 {
		comma = ','
	}

	filename := "submission_template.csv"
	if comma == '\t' {
		filename = "submission_template.tsv"
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := core.WriteTemplate(w, comma); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("write template", "error", err)
	}
}

// handleValidate runs the checks on the uploaded "file" field.
//
// Query or form parameters:
//   - expected_rows: enables the row count check
//   - delimiter: field separator (",", ";", "tab", ...)
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(r.Context()); err != nil {
		w.Header().Set("Retry-After", "5")
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	defer s.limiter.Release()

	if limit := s.cfg.Upload.MaxFileSize; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %w", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.checkOptions(r.FormValue("expected_rows"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()
	logger := logging.WithFields(r.Context(), s.logger, "upload_bytes", header.Size)

	comma, err := s.delimiter(r.FormValue("delimiter"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if comma == 0 {
		comma = core.DelimiterFor(header.Filename)
	}

	validator := core.NewValidator(core.LoadOptions{
		Comma:    comma,
		MaxBytes: s.cfg.Upload.MaxFileSize,
	}, logger)
	report := validator.ValidateReader(header.Filename, file, opts)

	if s.runs != nil {
		run, err := s.runs.Record(context.WithoutCancel(r.Context()), report)
		if err != nil {
			logger.Error("record run", "source", report.Source, "error", err)
		} else {
			w.Header().Set("X-Run-ID", run.ID)
		}
	}

	status := http.StatusOK
	if report.Status == core.StatusLoadFailed {
		status = http.StatusUnprocessableEntity
	}
	s.writeReport(w, r, status, report)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.respondError(w, r, errHistoryDisabled, http.StatusNotFound)
		return
	}

	run, err := s.runs.Get(r.Context(), chi.URLParam(r, "runID"))
	switch {
	case errors.Is(err, history.ErrInvalidRunID):
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	case errors.Is(err, history.ErrRunNotFound):
		s.respondError(w, r, err, http.StatusNotFound)
		return
	case err != nil:
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		render.HTML(run.Report).Render(r.Context(), w)
		return
	}
	s.writeJSON(w, r, http.StatusOK, run)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage(s.cfg.Upload.MaxFileSize).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context(), s.logger).Error("render index", "error", err)
	}
}

// checkOptions builds the check options from the expected_rows parameter,
// falling back to the configured default.
func (s *Server) checkOptions(raw string) (core.Options, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if s.cfg.Check.ExpectedRows != nil {
			return core.WithExpectedRows(*s.cfg.Check.ExpectedRows), nil
		}
		return core.Options{}, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return core.Options{}, fmt.Errorf("invalid expected rows %q: %w", raw, err)
	}
	opts := core.WithExpectedRows(n)
	if err := opts.Validate(); err != nil {
		return core.Options{}, err
	}
	return opts, nil
}

// delimiter resolves the request's delimiter parameter, then the configured
// one. 0 means choose by file extension.
func (s *Server) delimiter(raw string) (rune, error) {
	if raw != "" {
		comma, err := config.ParseDelimiter(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid delimiter: %w", err)
		}
		return comma, nil
	}
	comma, err := config.ParseDelimiter(s.cfg.Check.Delimiter)
	if err != nil {
		return 0, fmt.Errorf("invalid delimiter: %w", err)
	}
	return comma, nil
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, status int, report core.Report) {
	logger := logging.FromContext(r.Context(), s.logger)

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := render.HTML(report).Render(r.Context(), w); err != nil {
			logger.Error("render report", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := render.JSON(w, report); err != nil {
		logger.Error("json encode error", "error", err)
	}
}

// uploadLimit describes maxBytes for the upload form.
func uploadLimit(maxBytes int64) string {
	if maxBytes <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d MB", maxBytes>>20)
}
