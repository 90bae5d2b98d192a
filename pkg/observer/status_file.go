package observer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/startstop/pkg/lifecycle"
	"github.com/bft-labs/startstop/pkg/log"
)

// StatusFileName is the name of the file StatusFile writes in its directory.
const StatusFileName = "status.json"

// StatusFile is an observer that keeps the latest state change of a
// service in <dir>/status.json for operators and tooling.
type StatusFile struct {
	dir    string
	logger log.Logger

	mu sync.Mutex
}

var _ lifecycle.Observer = (*StatusFile)(nil)

// NewStatusFile creates a StatusFile writing into dir.
func NewStatusFile(dir string, logger log.Logger) *StatusFile {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &StatusFile{dir: dir, logger: logger}
}

// OnStateChange saves the event. Write failures are logged, not returned.
func (f *StatusFile) OnStateChange(e lifecycle.StateChangeEvent) {
	if err := f.Save(NewRecord(e)); err != nil {
		f.logger.Warn("failed to write status file",
			log.String("path", f.Path()),
			log.Err(err),
		)
	}
}

// Load reads the last saved record.
// Returns an empty record and nil error if no status file exists.
func (f *StatusFile) Load() (Record, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, err
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Save persists r atomically (write to temp file, then rename).
func (f *StatusFile) Save(r Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}

	path := f.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (f *StatusFile) Path() string {
	return filepath.Join(f.dir, StatusFileName)
}
