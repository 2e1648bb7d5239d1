package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/notes"
	"github.com/RyanBlaney/sonido-harmony/rational"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

func progressionMIDI(t *testing.T) []byte {
	t.Helper()
	var ns []notes.Note
	for bar, chord := range [][]int{{60, 64, 67}, {53, 57, 60}, {55, 59, 62}, {60, 64, 67}} {
		for _, p := range chord {
			ns = append(ns, notes.Note{
				Onset:    rational.FromInt(int64(bar * 4)),
				Duration: rational.FromInt(4),
				Pitch:    p,
				Velocity: 90,
			})
		}
	}
	table := notes.NewTable(ns, notes.Metadata{
		TimeSignatures: []notes.TimeSignature{{Numerator: 4, Denominator: 4}},
	})
	var buf bytes.Buffer
	require.NoError(t, transcode.EncodeMIDI(&buf, table))
	return buf.Bytes()
}

func newTestServer(t *testing.T, params Params) http.Handler {
	t.Helper()
	a, err := analysis.NewAnalyzer(nil)
	require.NoError(t, err)
	return NewServerWithParams(a, params).Handler()
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, DefaultParams())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAnalyze(t *testing.T) {
	h := newTestServer(t, DefaultParams())
	body := progressionMIDI(t)

	tests := []struct {
		name        string
		target      string
		contentType string
	}{
		{name: "format query", target: "/analyze?format=midi"},
		{name: "content type", target: "/analyze", contentType: "audio/midi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, bytes.NewReader(body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp struct {
				AnalyzeResponse
				Score json.RawMessage `json:"score"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.Bars, 4)
			assert.True(t, resp.BarDuration.Equal(rational.FromInt(4)))
			romans := make([]string, len(resp.Bars))
			for i, b := range resp.Bars {
				romans[i] = b.Roman
				assert.Equal(t, "C major", b.Tonality)
			}
			assert.Equal(t, []string{"I", "IV", "V", "I"}, romans)
			assert.Equal(t, []int{5, 9, 0}, resp.Bars[1].PitchClasses)
			assert.True(t, resp.Bars[2].Start.Equal(rational.FromInt(8)))
			assert.Equal(t, "PD", resp.Bars[1].Function)
			assert.Equal(t, "F", resp.Bars[1].Symbol)
			assert.Equal(t, "G", resp.Bars[2].Symbol)
			assert.Equal(t, "IAC", resp.Bars[3].Cadence, "G on top of the final tonic")
			assert.Empty(t, resp.Bars[2].Cadence)
			assert.Empty(t, resp.Modulations)
			assert.Equal(t, "C major", resp.Summary.Key)
			assert.Equal(t, map[string]int{"IAC": 1}, resp.Summary.Cadences)
			assert.Empty(t, resp.Degradations)
			assert.Contains(t, string(resp.Score), `"chords"`)
		})
	}
}

func TestRequestIDReachesAnalyzerLogs(t *testing.T) {
	rec := logging.NewRecorder()
	prev := logging.GetGlobalLogger()
	logging.SetGlobalLogger(rec)
	defer logging.SetGlobalLogger(prev)

	h := newTestServer(t, DefaultParams())
	req := httptest.NewRequest(http.MethodPost, "/analyze?format=midi", bytes.NewReader(progressionMIDI(t)))
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	bars := 0
	for _, e := range rec.Filter("component", "analyzer") {
		assert.Equal(t, "req-42", e.Fields["request_id"], e.Msg)
		if e.Msg == "Bar analyzed" {
			bars++
		}
	}
	assert.Equal(t, 4, bars)
	assert.NotEmpty(t, rec.Filter("request_id", "req-42"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader), "ids are minted when absent")
}

func TestAnalyzeRows(t *testing.T) {
	h := newTestServer(t, DefaultParams())
	req := httptest.NewRequest(http.MethodPost, "/analyze?format=mid&view=rows", bytes.NewReader(progressionMIDI(t)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/tab-separated-values")
	rows, err := analysis.ReadRowsTSV(w.Body)
	require.NoError(t, err)
	assert.Len(t, rows, 64)
}

func TestAnalyzeErrors(t *testing.T) {
	params := DefaultParams()
	params.MaxBodyBytes = 1 << 10
	h := newTestServer(t, params)

	tests := []struct {
		name   string
		target string
		body   []byte
		status int
		detail string
	}{
		{name: "missing format", target: "/analyze", body: []byte("x"), status: http.StatusBadRequest, detail: "format"},
		{name: "unknown format", target: "/analyze?format=wav", body: []byte("x"), status: http.StatusBadRequest, detail: "wav"},
		{name: "garbage midi", target: "/analyze?format=midi", body: []byte("not a midi file"), status: http.StatusBadRequest},
		{name: "unknown view", target: "/analyze?format=midi&view=pdf", body: progressionMIDI(t), status: http.StatusBadRequest, detail: "pdf"},
		{name: "too large", target: "/analyze?format=midi", body: bytes.Repeat([]byte{0}, 4<<10), status: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tt.target, bytes.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			if tt.detail != "" {
				assert.Contains(t, resp.Error, tt.detail)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, DefaultParams())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCORS(t *testing.T) {
	params := DefaultParams()
	params.AllowedOrigins = []string{"https://scores.example"}
	h := newTestServer(t, params)

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://scores.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://scores.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
