package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanya94592-stack/ecu-editor/internal/checksum"
	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/csvmap"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
	"github.com/sanya94592-stack/ecu-editor/internal/session"
	"github.com/sanya94592-stack/ecu-editor/internal/validation"
	"github.com/sanya94592-stack/ecu-editor/internal/version"
)

// maxEditBody caps PUT bodies; the largest maps are a few thousand cells
const maxEditBody = 1 << 20

// Handler returns the API routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /api/profiles", s.handleProfiles)
	mux.HandleFunc("GET /api/profiles/{name}/maps", s.handleProfileMaps)
	mux.HandleFunc("POST /api/session", s.handleLoad)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/session/maps/{name}", s.handleGetMap)
	mux.HandleFunc("PUT /api/session/maps/{name}", s.handlePutMap)
	mux.HandleFunc("POST /api/session/undo", s.handleUndo)
	mux.HandleFunc("POST /api/session/finalize", s.handleFinalize)
	mux.Handle("GET /api/events", s.hub)
	return logRequests(mux)
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the WebSocket upgrader
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Details []string `json:"details,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch ecuerr.KindOf(err) {
	case ecuerr.KindUnknownProfile, ecuerr.KindUnknownMap:
		return http.StatusNotFound
	case ecuerr.KindParse:
		return http.StatusBadRequest
	case ecuerr.KindSizeMismatch, ecuerr.KindOutOfBounds, ecuerr.KindOutOfRange,
		ecuerr.KindValueOverflow, ecuerr.KindShape:
		return http.StatusUnprocessableEntity
	case ecuerr.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error, details ...string) {
	status := statusFor(err)
	if status >= 500 {
		logging.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{
		Error:   err.Error(),
		Kind:    ecuerr.KindOf(err).String(),
		Details: details,
		Hints:   ecuerr.Hint(err),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// profileInfo is the catalog entry for one profile
type profileInfo struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Size            int    `json:"size"`
	ChecksumAddr    int    `json:"checksum_addr"`
	ChecksumTrailer int    `json:"checksum_trailer"`
	Maps            int    `json:"maps"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	list := s.registry.List()
	out := make([]profileInfo, 0, len(list))
	for _, p := range list {
		out = append(out, profileInfo{
			Name:            p.Name,
			Description:     p.Description,
			Size:            p.Size,
			ChecksumAddr:    p.ChecksumAddr,
			ChecksumTrailer: p.ChecksumTrailer,
			Maps:            len(p.Maps),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// mapInfo describes a map definition, optionally with decoded values
type mapInfo struct {
	Name        string       `json:"name"`
	Offset      int          `json:"offset"`
	Rows        int          `json:"rows"`
	Cols        int          `json:"cols"`
	Factor      float64      `json:"factor"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Unit        string       `json:"unit,omitempty"`
	Description string       `json:"description,omitempty"`
	Values      codec.Matrix `json:"values,omitempty"`
}

func newMapInfo(d profile.MapDefinition) mapInfo {
	return mapInfo{
		Name: d.Name, Offset: d.Offset, Rows: d.Rows, Cols: d.Cols,
		Factor: d.Factor, Min: d.Min, Max: d.Max,
		Unit: d.Unit, Description: d.Description,
	}
}

func (s *Server) handleProfileMaps(w http.ResponseWriter, r *http.Request) {
	p, err := s.registry.Lookup(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]mapInfo, 0, len(p.Maps))
	for _, d := range p.Maps {
		out = append(out, newMapInfo(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// sessionInfo is the state of the shared session
type sessionInfo struct {
	State    session.State         `json:"state"`
	Profile  string                `json:"profile,omitempty"`
	Size     int                   `json:"size,omitempty"`
	Maps     []string              `json:"maps,omitempty"`
	Checksum *checksum.Report      `json:"checksum,omitempty"`
	History  []*session.EditRecord `json:"history,omitempty"`
}

// snapshot must be called with mu held
func (s *Server) snapshot() sessionInfo {
	info := sessionInfo{State: s.session.State()}
	p := s.session.Profile()
	if p == nil {
		return info
	}
	info.Profile = p.Name
	info.Size = p.Size
	info.Maps = p.MapNames()
	info.History = s.session.History()
	if report, err := s.session.Verify(); err == nil {
		info.Checksum = &report
	}
	return info
}

// resolveProfile picks the profile from the query, or by image size when
// exactly one profile matches.
func (s *Server) resolveProfile(name string, size int) (*profile.ECUProfile, error) {
	if name != "" {
		return s.registry.Lookup(name)
	}
	matches := s.registry.MatchSize(size)
	if len(matches) == 1 {
		return matches[0], nil
	}
	// Ambiguous or no match: the caller has to name the profile
	return nil, &ecuerr.UnknownProfileError{
		Name:      fmt.Sprintf("<%d-byte image>", size),
		Available: s.registry.Names(),
	}
}

func (s *Server) maxImageSize() int64 {
	var max int
	for _, p := range s.registry.List() {
		if p.Size > max {
			max = p.Size
		}
	}
	return int64(max) + 1
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.maxImageSize())
	data, err := io.ReadAll(body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("image larger than any known profile (%d bytes max)", tooBig.Limit-1),
				Kind:  ecuerr.KindSizeMismatch.String(),
			})
			return
		}
		writeError(w, &ecuerr.IOError{Op: "read", Path: "request body", Err: err})
		return
	}

	p, err := s.resolveProfile(r.URL.Query().Get("profile"), len(data))
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Load(data, p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.snapshot())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cm, err := s.session.DecodeMap(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	info := newMapInfo(cm.Def)
	info.Values = cm.Values
	writeJSON(w, http.StatusOK, info)
}

// editRequest is the body of PUT /api/session/maps/{name}. Values may be
// numbers or numeric strings; strings are parsed like CSV cells.
type editRequest struct {
	Values [][]json.RawMessage `json:"values"`
}

// matrix converts the request into a matrix, reporting the first bad cell
func (e *editRequest) matrix() (codec.Matrix, error) {
	m := make(codec.Matrix, len(e.Values))
	for y, row := range e.Values {
		m[y] = make([]float64, len(row))
		for x, cell := range row {
			var v float64
			if string(cell) != "null" && json.Unmarshal(cell, &v) == nil {
				m[y][x] = v
				continue
			}
			var text string
			if err := json.Unmarshal(cell, &text); err != nil {
				text = string(cell)
			}
			v, err := csvmap.ParseCell(text, y, x)
			if err != nil {
				return nil, err
			}
			m[y][x] = v
		}
	}
	return m, nil
}

func (s *Server) handlePutMap(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Kind:  ecuerr.KindParse.String(),
		})
		return
	}
	m, err := req.matrix()
	if err != nil {
		writeError(w, err)
		return
	}

	name := r.PathValue("name")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.ApplyEdit(name, m); err != nil {
		var details []string
		if ecuerr.KindOf(err) == ecuerr.KindOutOfRange {
			if def, derr := s.session.Profile().Map(name); derr == nil {
				for _, e := range validation.ValidateAll(m, *def) {
					details = append(details, e.Error())
				}
			}
		}
		writeError(w, err, details...)
		return
	}

	cm, err := s.session.DecodeMap(name)
	if err != nil {
		writeError(w, err)
		return
	}
	info := newMapInfo(cm.Def)
	info.Values = cm.Values
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.session.Undo(); err != nil {
		if errors.Is(err, session.ErrNothingToUndo) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: ecuerr.KindState.String()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.session.Finalize()
	if err != nil {
		writeError(w, err)
		return
	}

	name := strings.NewReplacer(" ", "_", "/", "_", "+", "").Replace(s.session.Profile().Name)
	filename := fmt.Sprintf("%s-%s.bin", name, time.Now().Format("20060102-150405"))

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Checksum", fmt.Sprintf("0x%08X", s.session.LastChecksum()))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to send finalized image", zap.Error(err))
	}
}
