package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
	"go.uber.org/zap"
)

// backupTimeFormat is used in backup file names.
const backupTimeFormat = "20060102-150405"

// ReadImage reads a whole image file.
func ReadImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ecuerr.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &ecuerr.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// LoadFile reads path and loads it as an image for p. Read failures and size
// mismatches leave the session untouched.
func (s *Session) LoadFile(path string, p *profile.ECUProfile) error {
	data, err := ReadImage(path)
	if err != nil {
		return err
	}
	return s.load(data, p, path)
}

// Save finalizes the image and writes it to path atomically (temporary file
// in the same directory, then rename). On failure the target, the live
// buffer and the session state are unchanged.
func (s *Session) Save(path string) error {
	if err := s.requireLoaded("save"); err != nil {
		return err
	}

	out, csum, err := s.finalized()
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, out); err != nil {
		logging.Error("Save failed", zap.String("path", path), zap.Error(err))
		return err
	}

	s.markSaved(csum)
	logging.Info("Image saved", zap.String("path", path), zap.Int("size", len(out)))
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return &ecuerr.IOError{Op: "create", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &ecuerr.IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &ecuerr.IOError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &ecuerr.IOError{Op: "close", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Clean up temp file on error
		os.Remove(tmpPath)
		return &ecuerr.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// Backup copies the file at path to a timestamped sibling
// (<path>.<YYYYMMDD-HHMMSS>.bak) and returns the backup path. If path does
// not exist there is nothing to protect and Backup returns "".
func Backup(path string) (string, error) {
	return backupAt(path, time.Now())
}

func backupAt(path string, now time.Time) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	data, err := ReadImage(path)
	if err != nil {
		return "", err
	}

	backupPath := fmt.Sprintf("%s.%s.bak", path, now.Format(backupTimeFormat))
	if err := WriteFileAtomic(backupPath, data); err != nil {
		return "", err
	}

	logging.Info("Backup created", zap.String("source", path), zap.String("backup", backupPath))
	return backupPath, nil
}
