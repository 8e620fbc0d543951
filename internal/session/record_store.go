package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// saveRecord persists a session's Record to its sidecar JSON file so the
// CLI can find mount points and base commits across daemon restarts.
func (m *Manager) saveRecord(r Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode session record %q: %v", vibeerr.ErrIO, r.ID, err)
	}
	if err := os.WriteFile(m.recordPath(r.ID), data, 0o644); err != nil {
		return fmt.Errorf("%w: write session record %q: %v", vibeerr.ErrIO, r.ID, err)
	}
	return nil
}

// loadRecord reads a session's sidecar record, or (Record{}, false, nil)
// if it does not exist.
func (m *Manager) loadRecord(id string) (Record, bool, error) {
	data, err := os.ReadFile(m.recordPath(id))
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: read session record %q: %v", vibeerr.ErrIO, id, err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, false, fmt.Errorf("%w: decode session record %q: %v", vibeerr.ErrIO, id, err)
	}
	return r, true, nil
}

// removeRecord deletes a session's sidecar file, if present.
func (m *Manager) removeRecord(id string) error {
	if err := os.Remove(m.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove session record %q: %v", vibeerr.ErrIO, id, err)
	}
	return nil
}
