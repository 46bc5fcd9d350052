package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"predicacal/internal/apperr"
	"predicacal/internal/capture"
	"predicacal/internal/config"
	appLog "predicacal/internal/log"
	"predicacal/internal/service"
)

// Capturer takes PNG screenshots of a page.
type Capturer interface {
	CapturePNG(ctx context.Context, opts capture.Options) ([]byte, error)
}

// Server provides the HTTP API, the HTML month view and the PNG preview.
type Server struct {
	cfg      *config.Config
	svc      *service.Service
	capturer Capturer
	router   chi.Router
}

// NewServer constructs a new Server. A nil capturer uses headless Chromium.
func NewServer(cfg *config.Config, svc *service.Service, capturer Capturer) *Server {
	if capturer == nil {
		capturer = capture.Chromium{}
	}
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		capturer: capturer,
		router:   chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewHTTPServer wraps the handler in an http.Server bound to cfg.Listen.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
			r.Use(s.basicAuthMiddleware)
		}

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/calendar", http.StatusFound)
		})
		r.Get("/calendar", s.handleCalendar)
		r.Get("/preview.png", s.handlePreview)

		r.Route("/api", func(r chi.Router) {
			r.Get("/locations", s.handleListLocations)
			r.Post("/locations", s.handleCreateLocation)
			r.Delete("/locations/{id}", s.handleDeleteLocation)

			r.Get("/conductors", s.handleListConductors)
			r.Post("/conductors", s.handleCreateConductor)
			r.Delete("/conductors/{id}", s.handleDeleteConductor)

			r.Get("/territories", s.handleListTerritories)
			r.Post("/territories", s.handleCreateTerritory)
			r.Delete("/territories/{id}", s.handleDeleteTerritory)

			r.Get("/events", s.handleListEvents)
			r.Post("/events", s.handleCreateEvent)
			r.Delete("/events/{id}", s.handleDeleteEvent)

			r.Get("/calendar.pdf", s.handleCalendarPDF)
			r.Get("/export/ics", s.handleExportICS)
			r.Post("/export/ics", s.handleExportICS)
			r.Get("/feed.ics", s.handleFeed)
			r.Post("/import/ics", s.handleImportICS)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware guards every route it wraps with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="predicacal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// yearMonth reads ?year=&month=, defaulting each to the current month.
func (s *Server) yearMonth(r *http.Request) (int, time.Month, error) {
	year, month := s.svc.CurrentMonth()
	q := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			q = r.Form
		}
	}
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, apperr.New(apperr.CodeInvalidArgument, "invalid year %q", v)
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, apperr.New(apperr.CodeInvalidArgument, "invalid month %q", v)
		}
		month = time.Month(n)
	}
	if month < time.January || month > time.December {
		return 0, 0, apperr.New(apperr.CodeInvalidArgument, "month must be 1-12, got %d", int(month))
	}
	return year, month, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeAppError maps err to a status. Internal failures are logged and
// answered with fallback instead of the error text.
func writeAppError(w http.ResponseWriter, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("request failed", err)
		writeError(w, status, fallback)
		return
	}
	writeError(w, status, apperr.UserMessage(err))
}

func writeDocument(w http.ResponseWriter, doc service.Document, disposition string) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", disposition+`; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	if doc.FromCache {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
