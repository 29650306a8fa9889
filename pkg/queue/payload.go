// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// PayloadStore keeps the opaque job descriptions on disk, one JSON file per
// item uid, under <home>/payloads/. Contents are never interpreted.
type PayloadStore struct {
	fs  afero.Fs
	dir string
}

// NewPayloadStore returns a store rooted at the given directory.
func NewPayloadStore(fs afero.Fs, dir string) *PayloadStore {
	return &PayloadStore{fs: fs, dir: dir}
}

// Path returns the blob location for a uid.
func (s *PayloadStore) Path(uid string) string {
	return filepath.Join(s.dir, uid+".json")
}

// Put writes the payload for a uid and returns the blob path. The write is
// atomic: a temp file in the same directory is renamed over the target.
func (s *PayloadStore) Put(uid string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating payload folder: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, uid+".*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmp.Name()) //nolint:errcheck
		return "", err
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmp.Name()) //nolint:errcheck
		return "", err
	}

	target := s.Path(uid)
	if err := s.fs.Rename(tmp.Name(), target); err != nil {
		s.fs.Remove(tmp.Name()) //nolint:errcheck
		return "", err
	}
	return target, nil
}

// Get reads the payload for a uid. A missing blob is ErrPayloadMissing.
func (s *PayloadStore) Get(uid string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.Path(uid))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("payload of item %s: %w", uid, ErrPayloadMissing)
	}
	return data, err
}

// Erase removes the payload blob for a uid. Erasing a missing blob is fine.
func (s *PayloadStore) Erase(uid string) error {
	err := s.fs.Remove(s.Path(uid))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// RemoveAll deletes the whole payload directory.
func (s *PayloadStore) RemoveAll() error {
	return s.fs.RemoveAll(s.dir)
}
