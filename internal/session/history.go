package session

import (
	"errors"
	"time"

	"github.com/sanya94592-stack/ecu-editor/internal/logging"
)

// MaxHistory is the number of edits a session remembers for Undo.
const MaxHistory = 32

// ErrNothingToUndo is returned by Undo when the history is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

// EditRecord is one applied edit: the byte range it replaced and the bytes
// that were there before.
type EditRecord struct {
	Map       string    `json:"map"`
	Offset    int       `json:"offset"`
	Length    int       `json:"length"`
	Timestamp time.Time `json:"timestamp"`

	previous []byte
}

// record saves the current contents of region before it is overwritten.
func (s *Session) record(name string, offset int, region []byte) {
	s.history = append(s.history, &EditRecord{
		Map:       name,
		Offset:    offset,
		Length:    len(region),
		Timestamp: time.Now(),
		previous:  append([]byte(nil), region...),
	})

	// Drop the oldest entry once the limit is reached
	if len(s.history) > s.maxHistory {
		s.history = s.history[1:]
	}
}

// History returns applied edits, oldest first.
func (s *Session) History() []*EditRecord {
	result := make([]*EditRecord, len(s.history))
	copy(result, s.history)
	return result
}

// Undo restores the bytes replaced by the most recent edit and returns its
// record. The session is left in StateEdited since the buffer no longer
// matches the last finalized image.
func (s *Session) Undo() (*EditRecord, error) {
	if err := s.requireLoaded("undo"); err != nil {
		return nil, err
	}
	if len(s.history) == 0 {
		return nil, ErrNothingToUndo
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	copy(s.image[last.Offset:last.Offset+last.Length], last.previous)
	logging.LogPatch(last.Map+" (undo)", last.Offset, last.Length)

	s.state = StateEdited
	s.notify(Event{Type: EventUndone, Map: last.Map})
	return last, nil
}
