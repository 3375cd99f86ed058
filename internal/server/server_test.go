package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sanya94592-stack/ecu-editor/internal/checksum"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

func testProfile() *profile.ECUProfile {
	return &profile.ECUProfile{
		Name:         "Bench 1+",
		Size:         64,
		ChecksumAddr: 60,
		Maps: []profile.MapDefinition{
			{Name: "Fuel", Offset: 0, Rows: 2, Cols: 2, Factor: 0.01, Min: 0.7, Max: 1.3, Unit: "x"},
			{Name: "Ignition", Offset: 16, Rows: 2, Cols: 3, Factor: 0.5, Min: 0, Max: 50, Unit: "deg"},
		},
	}
}

func testImage() []byte {
	image := make([]byte, 64)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(image[i*2:], 100)
	}
	return image
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	reg, err := profile.NewRegistry(testProfile())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	s, err := New(&Config{Host: "127.0.0.1", Registry: reg})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func loadImage(t *testing.T, ts *httptest.Server) {
	t.Helper()
	u := ts.URL + "/api/session?profile=" + url.QueryEscape("Bench 1+")
	resp := do(t, http.MethodPost, u, bytes.NewReader(testImage()))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("load status = %d, want 201", resp.StatusCode)
	}
}

func TestNew_RequiresRegistry(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Error("New() without registry should fail")
	}
}

func TestConfig_Addr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"127.0.0.1", 8080, "127.0.0.1:8080"},
		{"", 9000, ":9000"},
		{"::1", 443, "[::1]:443"},
	}
	for _, tt := range tests {
		c := &Config{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}

func TestProfiles(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/profiles", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got []profileInfo
	decode(t, resp, &got)
	if len(got) != 1 || got[0].Name != "Bench 1+" {
		t.Fatalf("profiles = %+v", got)
	}
	if got[0].ChecksumTrailer != profile.DefaultChecksumTrailer {
		t.Errorf("ChecksumTrailer = %d, want default", got[0].ChecksumTrailer)
	}
	if got[0].Maps != 2 {
		t.Errorf("Maps = %d, want 2", got[0].Maps)
	}
}

func TestProfileMaps(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/profiles/"+url.PathEscape("Bench 1+")+"/maps", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var maps []mapInfo
	decode(t, resp, &maps)
	if len(maps) != 2 || maps[1].Name != "Ignition" || maps[1].Cols != 3 {
		t.Errorf("maps = %+v", maps)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/profiles/nope/maps", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown profile status = %d, want 404", resp.StatusCode)
	}
	var e errorResponse
	decode(t, resp, &e)
	if e.Kind != "Unknown Profile" {
		t.Errorf("kind = %q", e.Kind)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		body       []byte
		wantStatus int
	}{
		{"named profile", "?profile=" + url.QueryEscape("Bench 1+"), testImage(), http.StatusCreated},
		{"matched by size", "", testImage(), http.StatusCreated},
		{"wrong size", "?profile=" + url.QueryEscape("Bench 1+"), make([]byte, 32), http.StatusUnprocessableEntity},
		{"no size match", "", make([]byte, 32), http.StatusNotFound},
		{"unknown profile", "?profile=M73", testImage(), http.StatusNotFound},
		{"larger than any profile", "", make([]byte, 4096), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newTestServer(t)
			resp := do(t, http.MethodPost, ts.URL+"/api/session"+tt.query, bytes.NewReader(tt.body))
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestSessionBeforeLoad(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/session", nil)
	var info sessionInfo
	decode(t, resp, &info)
	if info.State.String() != "empty" || info.Profile != "" {
		t.Errorf("session = %+v, want empty", info)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/session/maps/Fuel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("map before load status = %d, want 409", resp.StatusCode)
	}
	resp = do(t, http.MethodPost, ts.URL+"/api/session/finalize", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("finalize before load status = %d, want 409", resp.StatusCode)
	}
}

func TestGetMap(t *testing.T) {
	_, ts := newTestServer(t)
	loadImage(t, ts)

	resp := do(t, http.MethodGet, ts.URL+"/api/session/maps/Fuel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info mapInfo
	decode(t, resp, &info)
	if len(info.Values) != 2 || info.Values[1][1] != 1.0 {
		t.Errorf("values = %v", info.Values)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/session/maps/Boost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown map status = %d, want 404", resp.StatusCode)
	}
}

func TestPutMap(t *testing.T) {
	s, ts := newTestServer(t)
	loadImage(t, ts)

	body := `{"values": [[1.05, "0.95"], [1.0, 1.3]]}`
	resp := do(t, http.MethodPut, ts.URL+"/api/session/maps/Fuel", strings.NewReader(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info mapInfo
	decode(t, resp, &info)
	if info.Values[0][1] != 0.95 || info.Values[1][1] != 1.3 {
		t.Errorf("values = %v", info.Values)
	}

	s.mu.Lock()
	raw := binary.LittleEndian.Uint16(s.session.Bytes()[0:])
	s.mu.Unlock()
	if raw != 105 {
		t.Errorf("raw cell = %d, want 105", raw)
	}
}

func TestPutMap_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantKind    string
		wantDetails int
	}{
		{"out of range", `{"values": [[1.5, 1.0], [1.0, 0.1]]}`, http.StatusUnprocessableEntity, "Out Of Range", 2},
		{"wrong shape", `{"values": [[1.0, 1.0]]}`, http.StatusUnprocessableEntity, "Shape Mismatch", 0},
		{"non-numeric cell", `{"values": [[1.0, "abc"], [1.0, 1.0]]}`, http.StatusBadRequest, "Parse Error", 0},
		{"null cell", `{"values": [[1.0, null], [1.0, 1.0]]}`, http.StatusBadRequest, "Parse Error", 0},
		{"bad json", `{"values": `, http.StatusBadRequest, "Parse Error", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ts := newTestServer(t)
			loadImage(t, ts)

			resp := do(t, http.MethodPut, ts.URL+"/api/session/maps/Fuel", strings.NewReader(tt.body))
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var e errorResponse
			decode(t, resp, &e)
			if e.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", e.Kind, tt.wantKind)
			}
			if len(e.Details) != tt.wantDetails {
				t.Errorf("details = %v, want %d entries", e.Details, tt.wantDetails)
			}

			s.mu.Lock()
			defer s.mu.Unlock()
			if !bytes.Equal(s.session.Bytes(), testImage()) {
				t.Error("rejected edit modified the buffer")
			}
			if got := s.session.State().String(); got != "loaded" {
				t.Errorf("state = %q, want loaded", got)
			}
		})
	}
}

func TestUndo(t *testing.T) {
	s, ts := newTestServer(t)
	loadImage(t, ts)

	resp := do(t, http.MethodPost, ts.URL+"/api/session/undo", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("undo with empty history status = %d, want 409", resp.StatusCode)
	}

	do(t, http.MethodPut, ts.URL+"/api/session/maps/Fuel", strings.NewReader(`{"values": [[1.1, 1.1], [1.1, 1.1]]}`))

	resp = do(t, http.MethodGet, ts.URL+"/api/session", nil)
	var info sessionInfo
	decode(t, resp, &info)
	if len(info.History) != 1 || info.History[0].Map != "Fuel" {
		t.Errorf("history = %+v", info.History)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/session/undo", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("undo status = %d", resp.StatusCode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !bytes.Equal(s.session.Bytes(), testImage()) {
		t.Error("undo did not restore the original bytes")
	}
}

func TestFinalize(t *testing.T) {
	_, ts := newTestServer(t)
	loadImage(t, ts)

	do(t, http.MethodPut, ts.URL+"/api/session/maps/Fuel", strings.NewReader(`{"values": [[1.1, 1.1], [1.1, 1.1]]}`))

	resp := do(t, http.MethodPost, ts.URL+"/api/session/finalize", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Bench_1-") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(data) != 64 {
		t.Fatalf("finalized image is %d bytes, want 64", len(data))
	}

	report, err := checksum.Verify(data, testProfile())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !report.Valid() {
		t.Errorf("finalized checksum invalid: %s", report)
	}
	want := fmt.Sprintf("0x%08X", report.Computed)
	if got := resp.Header.Get("X-Checksum"); got != want {
		t.Errorf("X-Checksum = %q, want %q", got, want)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/session", nil)
	var info sessionInfo
	decode(t, resp, &info)
	if info.State.String() != "saved" {
		t.Errorf("state = %q, want saved", info.State)
	}
}

func TestVersion(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/version", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]any
	decode(t, resp, &got)
	if len(got) == 0 {
		t.Error("empty version response")
	}
}
