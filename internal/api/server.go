// Package api serves the engine over HTTP as JSON.
package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/output"
	"github.com/rileyhilliard/vigil/internal/poller"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/view"
	"github.com/rileyhilliard/vigil/pkg/provider"
)

const (
	// MaxUploadBytes caps file-scan uploads.
	MaxUploadBytes = 32 << 20
	defaultRecent  = 10
)

// Engine is the subset of engine.Engine the API serves.
type Engine interface {
	Streams() []telemetry.StreamID
	Current(id telemetry.StreamID) (poller.StreamState, error)
	Recent(id telemetry.StreamID, n int) ([]telemetry.Reading, error)
	Indicators(id telemetry.StreamID) ([]telemetry.Indicator, risk.Tier, error)
	Invoke(kind scan.Kind, in *scan.FileInput) (<-chan scan.Job, error)
	Result(kind scan.Kind) (scan.Job, error)
	Job(id string) (scan.Job, bool)
	Serialize(kind scan.Kind) ([]byte, string, error)
	Export(kind scan.Kind) (string, error)
	Save(ctx context.Context) (*provider.SaveResult, error)
	Activate(id view.ID) error
	ActiveView() view.ID
}

// Server routes HTTP requests to an Engine.
type Server struct {
	r        *chi.Mux
	engine   Engine
	log      logger.Logger
	gatherer prometheus.Gatherer
}

// NewServer creates a server exposing metrics from the default gatherer.
func NewServer(e Engine, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	s := &Server{r: chi.NewRouter(), engine: e, log: log, gatherer: prometheus.DefaultGatherer}
	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.Recoverer)
	s.r.Use(s.requestLogger)
	s.routes()
	return s
}

// SetGatherer serves /metrics from g. Call before Handler.
func (s *Server) SetGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}

func (s *Server) routes() {
	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	s.r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})

	s.r.Route("/api", func(r chi.Router) {
		r.Get("/streams", s.listStreams)
		r.Get("/streams/{id}", s.getStream)
		r.Get("/streams/{id}/recent", s.getRecent)
		r.Get("/streams/{id}/indicators", s.getIndicators)

		r.Get("/views/active", s.getActiveView)
		r.Post("/views/{id}", s.activateView)

		r.Get("/scans/jobs/{id}", s.getJob)
		r.Post("/scans/{kind}", s.invokeScan)
		r.Get("/scans/{kind}", s.getScan)
		r.Get("/scans/{kind}/export", s.exportScan)
		r.Post("/scans/{kind}/export", s.writeExport)

		r.Post("/save", s.save)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.r }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening on %s", addr)

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot listen on "+addr, "Check server.addr or free the port")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = output.WriteJSONSuccess(w, data)
}

func writeError(w http.ResponseWriter, err error) {
	je := output.ErrorToJSON(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(output.HTTPStatus(je.Code))
	_ = output.WriteJSONError(w, je.Code, je.Message, je.Suggestion, je.Details)
}

func streamParam(r *http.Request) telemetry.StreamID {
	return telemetry.StreamID(chi.URLParam(r, "id"))
}

func kindParam(r *http.Request) (scan.Kind, error) {
	k := scan.Kind(chi.URLParam(r, "kind"))
	if !k.Valid() {
		return "", errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Unknown scan kind: %s", k),
			"Valid kinds: full, cryptojacking, file")
	}
	return k, nil
}

func (s *Server) listStreams(w http.ResponseWriter, r *http.Request) {
	states := make([]poller.StreamState, 0, len(s.engine.Streams()))
	for _, id := range s.engine.Streams() {
		st, err := s.engine.Current(id)
		if err != nil {
			writeError(w, err)
			return
		}
		states = append(states, st)
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) getStream(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Current(streamParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getRecent(w http.ResponseWriter, r *http.Request) {
	n := defaultRecent
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 {
			writeError(w, errors.New(errors.ErrInvalidInput,
				fmt.Sprintf("Invalid n: %q", q), "Use a positive integer"))
			return
		}
		n = v
	}

	readings, err := s.engine.Recent(streamParam(r), n)
	if err != nil {
		writeError(w, err)
		return
	}
	if readings == nil {
		readings = []telemetry.Reading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

type indicatorsResponse struct {
	Stream     telemetry.StreamID    `json:"stream"`
	Tier       risk.Tier             `json:"tier"`
	Indicators []telemetry.Indicator `json:"indicators"`
}

func (s *Server) getIndicators(w http.ResponseWriter, r *http.Request) {
	id := streamParam(r)
	inds, tier, err := s.engine.Indicators(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indicatorsResponse{Stream: id, Tier: tier, Indicators: inds})
}

type viewResponse struct {
	Active  view.ID              `json:"active"`
	Streams []telemetry.StreamID `json:"streams"`
}

func viewBody(id view.ID) viewResponse {
	streams := view.Requirements(id)
	if streams == nil {
		streams = []telemetry.StreamID{}
	}
	return viewResponse{Active: id, Streams: streams}
}

func (s *Server) getActiveView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewBody(s.engine.ActiveView()))
}

func (s *Server) activateView(w http.ResponseWriter, r *http.Request) {
	id, err := view.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.Activate(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewBody(id))
}

type invokeResponse struct {
	JobID string     `json:"job_id"`
	Kind  scan.Kind  `json:"kind"`
	State scan.State `json:"state"`
}

// invokeScan starts a scan and answers 202 with the job id. With
// ?wait=true it blocks until the scan finishes and returns the job.
func (s *Server) invokeScan(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var in *scan.FileInput
	if kind == scan.File {
		in, err = readUpload(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	done, err := s.engine.Invoke(kind, in)
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		select {
		case job := <-done:
			writeJSON(w, http.StatusOK, job)
		case <-r.Context().Done():
		}
		return
	}

	job, _ := s.engine.Result(kind)
	writeJSON(w, http.StatusAccepted, invokeResponse{JobID: job.ID, Kind: kind, State: job.State})
}

// readUpload returns nil input when no file part is present, leaving the
// rejection to the orchestrator.
func readUpload(w http.ResponseWriter, r *http.Request) (*scan.FileInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		if stderrors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrInvalidInput,
			"Cannot read upload", fmt.Sprintf("Send a multipart form with a 'file' field under %d MB", MaxUploadBytes>>20))
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInvalidInput, "Cannot read upload", "")
	}
	return &scan.FileInput{Name: header.Filename, Content: content}, nil
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := s.engine.Result(kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.engine.Job(id)
	if !ok {
		writeError(w, errors.New(errors.ErrNotFound,
			fmt.Sprintf("No finished job %s", id),
			"Running jobs are listed under /api/scans/{kind}"))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// exportScan returns the serialized report as a download.
func (s *Server) exportScan(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	data, name, err := s.engine.Serialize(kind)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type exportResponse struct {
	Path string `json:"path"`
}

// writeExport writes the report to the server's export directory.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path, err := s.engine.Export(kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exportResponse{Path: path})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Save(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
