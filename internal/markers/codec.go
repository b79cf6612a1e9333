// internal/markers/codec.go
package markers

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tdmap/mapbuilder/internal/util"
	"github.com/tdmap/mapbuilder/pkg/core"
)

// Encode serializes the store as indented JSON.
func (s *Store) Encode() ([]byte, error) {
	out := *s
	if out.Markers == nil {
		out.Markers = []core.Marker{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode markers: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a store previously written by Encode.
// The result is clean: Dirty reports false until the next edit.
func Decode(data []byte) (*Store, error) {
	s := &Store{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to decode markers: %w", err)
	}
	if s.Markers == nil {
		s.Markers = make([]core.Marker, 0)
	}
	return s, nil
}

// Load reads and decodes the markers file at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markers file: %w", err)
	}
	return Decode(data)
}

// Save encodes the store and atomically replaces the file at path.
func (s *Store) Save(path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(path, data)
}
