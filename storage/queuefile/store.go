// Package queuefile persists the offline check-in queue as a JSON file.
package queuefile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hadirapp/hadir/core/scanqueue"
)

type Store struct {
	path string
}

var _ scanqueue.Store = (*Store)(nil) // interface compliance check

func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the queue; a missing file is an empty queue.
func (s *Store) Load() ([]scanqueue.Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading queue file")
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []scanqueue.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decoding queue file")
	}
	return entries, nil
}

// Save writes the queue atomically so a crash mid-write cannot lose
// previously queued scans.
func (s *Store) Save(entries []scanqueue.Entry) error {
	if entries == nil {
		entries = []scanqueue.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encoding queue file")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating queue dir")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating queue temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing queue file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing queue file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing queue file")
}
