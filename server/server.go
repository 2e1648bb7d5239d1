// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/faults"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/score"
	"github.com/RyanBlaney/sonido-harmony/theory"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

// Params configures the HTTP service
type Params struct {
	Addr            string        `json:"addr"`
	AllowedOrigins  []string      `json:"allowed_origins"`
	MaxBodyBytes    int64         `json:"max_body_bytes"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultParams listens on :8080 and accepts any origin
func DefaultParams() Params {
	return Params{
		Addr:            ":8080",
		AllowedOrigins:  []string{"*"},
		MaxBodyBytes:    16 << 20,
		RequestTimeout:  time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"detail"`
}

// BarReport is the analysis of one bar
type BarReport struct {
	Index         int          `json:"index"`
	Start         rational.Rat `json:"start"`
	End           rational.Rat `json:"end"`
	Key           string       `json:"key"`
	KeyConfidence float64      `json:"key_confidence"`
	Roman         string       `json:"roman"`
	Tonality      string       `json:"tonality"`
	Extension     string       `json:"extension"`
	Quality       string       `json:"quality,omitempty"`
	PitchClasses  []int        `json:"pcset,omitempty"`
	Symbol        string       `json:"chord_symbol,omitempty"`
	Function      string       `json:"function,omitempty"`
	Cadence       string       `json:"cadence,omitempty"`
}

// AnalyzeResponse is the JSON reply of POST /analyze
type AnalyzeResponse struct {
	BarDuration  rational.Rat           `json:"bar_duration"`
	Offset       rational.Rat           `json:"offset"`
	Start        rational.Rat           `json:"start"`
	Source       string                 `json:"grid_source"`
	Switches     float64                `json:"switches"`
	Bars         []BarReport            `json:"bars"`
	Degradations []analysis.Degradation `json:"degradations"`
	Modulations  []string               `json:"modulations"`
	VoiceLeading []string               `json:"voice_leading"`
	NonChord     []string               `json:"non_chord_tones"`
	Summary      analysis.Summary       `json:"summary"`
	Score        *score.Score           `json:"score"`
}

// NewAnalyzeResponse flattens an analysis result
func NewAnalyzeResponse(res *analysis.Result) AnalyzeResponse {
	out := AnalyzeResponse{
		BarDuration:  res.Grid.Duration,
		Offset:       res.Grid.Offset,
		Start:        res.Score.Start,
		Source:       res.Grid.Source,
		Switches:     res.Switches,
		Bars:         make([]BarReport, len(res.Bars)),
		Degradations: res.Degradations,
		Modulations:  make([]string, len(res.Modulations)),
		VoiceLeading: make([]string, len(res.Leading)),
		NonChord:     make([]string, len(res.Embellished)),
		Summary:      analysis.Summarize(res),
		Score:        res.Score,
	}
	if out.Degradations == nil {
		out.Degradations = []analysis.Degradation{}
	}
	for i, bar := range res.Bars {
		c := res.Chords[i]
		r := BarReport{
			Index:         i,
			Start:         bar.Start.Sub(res.Shift),
			End:           bar.End.Sub(res.Shift),
			Key:           res.Keys[i].Name(),
			KeyConfidence: res.Confidence[i],
			Roman:         c.Label(),
			Tonality:      c.Tonality.Name(),
			Extension:     c.Extension,
			Function:      res.FunctionAt(i).Label(),
			Cadence:       res.CadenceAt(i).Label(),
		}
		if !c.NoChord {
			r.Quality = c.Quality.String()
			if ch, err := theory.ChordOf(c.Roman, c.Tonality); err == nil {
				r.PitchClasses = ch.PitchClasses()
				r.Symbol = ch.Symbol().String()
			}
		}
		out.Bars[i] = r
	}
	for i, m := range res.Modulations {
		out.Modulations[i] = m.String()
	}
	for i, issue := range res.Leading {
		out.VoiceLeading[i] = issue.String()
	}
	for i, n := range res.Embellished {
		out.NonChord[i] = n.String()
	}
	return out
}

// Server routes analysis requests to a shared analyzer
type Server struct {
	analyzer *analysis.Analyzer
	params   Params
	router   *mux.Router
	logger   logging.Logger
}

// NewServer creates a server with default params
func NewServer(analyzer *analysis.Analyzer) *Server {
	return NewServerWithParams(analyzer, DefaultParams())
}

// NewServerWithParams creates a server with custom params
func NewServerWithParams(analyzer *analysis.Analyzer, params Params) *Server {
	s := &Server{
		analyzer: analyzer,
		params:   params,
		router:   mux.NewRouter().StrictSlash(true),
		logger: logging.WithFields(logging.Fields{
			"component": "server",
		}),
	}
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	return s
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.params.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.params.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", logging.Fields{"addr": s.params.Addr})
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.params.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze decodes the body in the format named by the format query
// parameter or the Content-Type. view=rows replies with the TSV table.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	format, err := requestFormat(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if s.params.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.RequestTimeout)
		defer cancel()
	}
	body := http.MaxBytesReader(w, r.Body, s.params.MaxBodyBytes)
	res, err := s.analyzer.AnalyzeReader(ctx, body, format)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch view := r.URL.Query().Get("view"); view {
	case "", "json":
		writeJSON(w, http.StatusOK, NewAnalyzeResponse(res))
	case "rows":
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := analysis.WriteRowsTSV(w, analysis.Rows(res, s.analyzer.Config().Table.RowStep)); err != nil {
			s.logger.Error(err, "Failed to write rows")
		}
	default:
		s.fail(w, r, faults.Rejectf("unknown view %q", view))
	}
}

var contentTypes = map[string]transcode.Format{
	"audio/midi":                             transcode.FormatMIDI,
	"audio/x-midi":                           transcode.FormatMIDI,
	"application/vnd.recordare.musicxml+xml": transcode.FormatMusicXML,
	"application/xml":                        transcode.FormatMusicXML,
	"text/xml":                               transcode.FormatMusicXML,
	"application/vnd.recordare.musicxml":     transcode.FormatMXL,
}

func requestFormat(r *http.Request) (transcode.Format, error) {
	if name := r.URL.Query().Get("format"); name != "" {
		return transcode.ParseFormat(name)
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if media, _, err := mime.ParseMediaType(ct); err == nil {
			if f, ok := contentTypes[media]; ok {
				return f, nil
			}
		}
	}
	return "", faults.Reject("missing format", "Name the input format with ?format=midi, musicxml or mxl.")
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case faults.Is(err, faults.InputRejected):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	fields := logging.Fields{"path": r.URL.Path, "status": status}
	logger := s.logger.WithContext(r.Context())
	if status >= 500 {
		logger.Error(err, "Request failed", fields)
	} else {
		logger.Warn("Request rejected", fields)
	}
	writeJSON(w, status, ErrorResponse{Error: faults.Issue(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// RequestIDHeader carries the id under which a request's log records are filed
const RequestIDHeader = "X-Request-ID"

// logRequests tags the request context with an id so every record the
// analyzer writes for it can be correlated
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(logging.ContextWithFields(r.Context(), logging.Fields{"request_id": id}))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.WithContext(r.Context()).Debug("Request served", logging.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
		})
	})
}
