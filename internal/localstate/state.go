// Package localstate keeps small JSON documents on disk between runs:
// score inputs and the last history the backend served.
package localstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// ErrInvalidKey is returned for keys that cannot name a file.
var ErrInvalidKey = errors.New("invalid state key")

// Store is a diskv-backed key/value store of JSON values.
// Keys are dash-separated; all but the last segment become directories,
// so "history-7" lands in <dir>/history/7.
type Store struct {
	d *diskv.Diskv
}

// Open returns a store rooted at dir. Nothing touches the disk until the
// first write.
func Open(dir string) *Store {
	return &Store{d: diskv.New(diskv.Options{
		BasePath:          dir,
		AdvancedTransform: keyToPath,
		InverseTransform:  pathToKey,
		CacheSizeMax:      256 * 1024,
		PathPerm:          0700,
		FilePerm:          0600,
	})}
}

// Get decodes the value stored under key into v.
// It reports false, with no error, when the key has never been written.
func (s *Store) Get(key string, v any) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	data, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Put encodes v as JSON and stores it under key.
func (s *Store) Put(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.d.Write(key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (s *Store) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if !s.d.Has(key) {
		return nil
	}
	return s.d.Erase(key)
}

// Has reports whether key has a value.
func (s *Store) Has(key string) bool {
	return checkKey(key) == nil && s.d.Has(key)
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) || strings.HasPrefix(key, "-") || strings.HasSuffix(key, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func keyToPath(key string) *diskv.PathKey {
	parts := strings.Split(key, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKey(pk *diskv.PathKey) string {
	return strings.Join(append(append([]string(nil), pk.Path...), pk.FileName), "-")
}
