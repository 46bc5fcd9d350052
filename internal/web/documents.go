package web

import (
	"io"
	"net/http"
	"strings"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
	"predicacal/internal/service"
)

const maxImportBody = 8 << 20

func (s *Server) handleCalendarPDF(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.yearMonth(r)
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}
	doc, err := s.svc.MonthPDF(r.Context(), year, month)
	if err != nil {
		writeAppError(w, err, "Error al generar el PDF del calendario.")
		return
	}
	writeDocument(w, doc, "attachment")
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.yearMonth(r)
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}
	doc, err := s.svc.MonthICS(r.Context(), year, month)
	if err != nil {
		writeAppError(w, err, "Error al generar los archivos ICS.")
		return
	}
	writeDocument(w, doc, "attachment")
}

// handleFeed serves the subscription calendar inline so calendar apps can
// poll it.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Feed(r.Context())
	if err != nil {
		writeAppError(w, err, "failed to build feed")
		return
	}
	writeDocument(w, doc, "inline")
}

// handleImportICS imports either the request body or, when ?url= is set, a
// remote calendar.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	if u := strings.TrimSpace(r.URL.Query().Get("url")); u != "" {
		res, err := s.svc.ImportURL(r.Context(), u)
		if err != nil {
			writeImportError(w, err, res)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.CodeInvalidArgument, err, "failed to read calendar body"), "invalid request")
		return
	}
	res, err := s.svc.Import(r.Context(), body, "upload")
	if err != nil {
		writeImportError(w, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeImportError reports a failed import together with the number of
// events stored before the failure.
func writeImportError(w http.ResponseWriter, err error, res service.ImportResult) {
	type importErrResp struct {
		Error   string `json:"error"`
		Created int    `json:"created"`
	}
	status := apperr.HTTPStatus(err)
	msg := apperr.UserMessage(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("import failed", err, "created", res.Created)
		msg = "failed to import calendar"
	}
	writeJSON(w, status, importErrResp{Error: msg, Created: res.Created})
}
