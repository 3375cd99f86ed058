package session

import (
	"fmt"
	"time"

	"github.com/sanya94592-stack/ecu-editor/internal/checksum"
	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
	"github.com/sanya94592-stack/ecu-editor/internal/validation"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Session.
type State int

const (
	// StateEmpty means no image has been loaded
	StateEmpty State = iota
	// StateLoaded means an image is loaded and unmodified
	StateLoaded
	// StateEdited means at least one map was changed since load or finalize
	StateEdited
	// StateSaved means the current buffer has been finalized with a checksum
	StateSaved
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateEdited:
		return "edited"
	case StateSaved:
		return "saved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText lets State appear by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateEmpty; st <= StateSaved; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Session owns one firmware image bound to one profile. It is not safe for
// concurrent use; front ends that share a Session must serialize access.
type Session struct {
	profile *profile.ECUProfile
	image   []byte
	state   State
	source  string

	history    []*EditRecord
	maxHistory int

	lastChecksum uint32
	observers    map[int]func(Event)
	nextObserver int
}

// New creates an empty session.
func New() *Session {
	return &Session{
		state:      StateEmpty,
		maxHistory: MaxHistory,
		observers:  make(map[int]func(Event)),
	}
}

// Load creates a session and loads data into it.
func Load(data []byte, p *profile.ECUProfile) (*Session, error) {
	s := New()
	if err := s.Load(data, p); err != nil {
		return nil, err
	}
	return s, nil
}

// Load binds the session to p and takes a private copy of data. The length
// must equal p.Size exactly. On error the session keeps its previous image,
// profile and state.
func (s *Session) Load(data []byte, p *profile.ECUProfile) error {
	return s.load(data, p, "memory")
}

func (s *Session) load(data []byte, p *profile.ECUProfile, source string) error {
	if p == nil {
		return fmt.Errorf("load: profile is nil")
	}
	if len(data) != p.Size {
		return &ecuerr.SizeMismatchError{Profile: p.Name, Want: p.Size, Got: len(data)}
	}

	s.profile = p
	s.image = append([]byte(nil), data...)
	s.state = StateLoaded
	s.source = source
	s.history = nil
	s.lastChecksum = 0

	logging.LogImageLoaded(p.Name, len(data), source)
	s.notify(Event{Type: EventLoaded})
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Profile returns the bound profile, or nil when the session is empty.
func (s *Session) Profile() *profile.ECUProfile {
	return s.profile
}

// Source returns the path the image was loaded from, or "memory".
func (s *Session) Source() string {
	return s.source
}

// Bytes returns a copy of the live (unfinalized) buffer.
func (s *Session) Bytes() []byte {
	return append([]byte(nil), s.image...)
}

// LastChecksum returns the checksum computed by the most recent Finalize or
// Save.
func (s *Session) LastChecksum() uint32 {
	return s.lastChecksum
}

func (s *Session) requireLoaded(op string) error {
	if s.state == StateEmpty {
		return &ecuerr.StateError{Op: op, State: s.state.String()}
	}
	return nil
}

// DecodeMap decodes the named map from the live buffer.
func (s *Session) DecodeMap(name string) (*codec.CalibrationMap, error) {
	if err := s.requireLoaded("decode map"); err != nil {
		return nil, err
	}
	def, err := s.profile.Map(name)
	if err != nil {
		return nil, err
	}
	return codec.Decode(s.image, *def)
}

// ApplyEdit validates and encodes m, then replaces the map's byte range in a
// single copy. Every check runs before the buffer is touched, so any error
// leaves both buffer and state unchanged.
func (s *Session) ApplyEdit(name string, m codec.Matrix) error {
	if err := s.requireLoaded("apply edit"); err != nil {
		return err
	}
	def, err := s.profile.Map(name)
	if err != nil {
		return err
	}

	if err := validation.Validate(m, *def); err != nil {
		logging.Warn("Edit rejected", zap.String("map", name), zap.Error(err))
		return err
	}
	data, err := codec.Encode(m, *def)
	if err != nil {
		logging.Warn("Edit rejected", zap.String("map", name), zap.Error(err))
		return err
	}

	region := s.image[def.Offset:def.End()]
	logging.LogRawBytes(name+" before", region)

	s.record(name, def.Offset, region)
	copy(region, data)

	logging.LogPatch(name, def.Offset, len(data))
	logging.LogRawBytes(name+" after", region)

	s.state = StateEdited
	s.notify(Event{Type: EventEdited, Map: name})
	return nil
}

// finalized returns a checksummed copy of the live buffer.
func (s *Session) finalized() ([]byte, uint32, error) {
	out := append([]byte(nil), s.image...)
	csum, err := checksum.Patch(out, s.profile)
	if err != nil {
		return nil, 0, err
	}
	return out, csum, nil
}

func (s *Session) markSaved(csum uint32) {
	s.lastChecksum = csum
	s.state = StateSaved
	logging.LogChecksum(s.profile.Name, s.profile.ChecksumAddr, csum)
	s.notify(Event{Type: EventFinalized, Checksum: csum})
}

// Finalize returns a copy of the image with the checksum field patched. The
// live buffer is left as-is, so finalizing twice without edits yields the
// same bytes. Further edits are allowed afterwards.
func (s *Session) Finalize() ([]byte, error) {
	if err := s.requireLoaded("finalize"); err != nil {
		return nil, err
	}
	out, csum, err := s.finalized()
	if err != nil {
		return nil, err
	}
	s.markSaved(csum)
	return out, nil
}

// Verify reports the checksum state of the live buffer.
func (s *Session) Verify() (checksum.Report, error) {
	if err := s.requireLoaded("verify"); err != nil {
		return checksum.Report{}, err
	}
	return checksum.Verify(s.image, s.profile)
}

// Maps returns the map definitions of the bound profile.
func (s *Session) Maps() []profile.MapDefinition {
	if s.profile == nil {
		return nil
	}
	return s.profile.Maps
}

// ListProfiles returns the profile names known to reg in catalog order.
func ListProfiles(reg *profile.Registry) []string {
	return reg.Names()
}

// ListMaps returns the map names of the named profile.
func ListMaps(reg *profile.Registry, name string) ([]string, error) {
	return reg.MapNames(name)
}

// Event is delivered to subscribers after each successful state change.
type Event struct {
	Type     EventType `json:"type"`
	Profile  string    `json:"profile"`
	Map      string    `json:"map,omitempty"`
	State    State     `json:"state"`
	Checksum uint32    `json:"checksum,omitempty"`
	Time     time.Time `json:"time"`
}

// EventType identifies what happened to the session.
type EventType string

const (
	EventLoaded    EventType = "loaded"
	EventEdited    EventType = "edited"
	EventUndone    EventType = "undone"
	EventFinalized EventType = "finalized"
)

// Subscribe registers fn to receive events. Callbacks run synchronously on
// the goroutine that changed the session. The returned function removes the
// subscription.
func (s *Session) Subscribe(fn func(Event)) func() {
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	return func() {
		delete(s.observers, id)
	}
}

func (s *Session) notify(ev Event) {
	if len(s.observers) == 0 {
		return
	}
	ev.Profile = s.profile.Name
	ev.State = s.state
	ev.Time = time.Now()
	for _, fn := range s.observers {
		fn(ev)
	}
}
