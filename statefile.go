package sidecar

import (
	"encoding/json"
	"os"

	"github.com/google/renameio/v2"
)

// StateRecord is the JSON snapshot persisted after each lifecycle
// transition when a state file is configured. A restarted host can read
// it back to recover the last-known port.
type StateRecord struct {
	Port    uint16 `json:"port"`
	PID     int    `json:"pid"`
	Running bool   `json:"running"`
}

// persist atomically writes the current state snapshot to the state
// file, if one is configured. Write failures are recorded, not returned;
// persistence is best-effort.
func (s *Supervisor) persist() {
	if s.StateFile == "" {
		return
	}

	st := s.Status()
	data, err := json.Marshal(StateRecord{
		Port:    st.Port,
		PID:     st.PID,
		Running: st.Running,
	})
	if err != nil {
		s.recordErr(err)
		return
	}

	if err := renameio.WriteFile(s.StateFile, data, FileMode); err != nil {
		s.recordErr(err)
	}
}

// LoadStateRecord reads a previously persisted state record
func LoadStateRecord(path string) (StateRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StateRecord{}, err
	}

	var rec StateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return StateRecord{}, err
	}
	return rec, nil
}
