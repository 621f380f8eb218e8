package beepbox

import (
	"bytes"
	"fmt"

	"github.com/chiptrack/beepbox/bitfield"
	"gopkg.in/yaml.v3"
)

// Parse reads a song in any of the supported forms: a compact string, a
// share URL with the compact string (or JSON) in its fragment, a JSON
// document or a YAML dump of the Song struct.
func Parse(data []byte) (*Song, error) {
	data = bytes.TrimSpace(data)
	if i := bytes.IndexByte(data, '#'); i >= 0 && bytes.Contains(data[:i], []byte("://")) {
		data = data[i+1:]
	}
	s := NewSong()
	switch {
	case len(data) == 0:
		return s, nil
	case data[0] == '{':
		if err := s.FromJSON(data); err != nil {
			return nil, err
		}
		return s, nil
	case isCompact(data):
		if err := s.FromCompactString(string(data)); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("song is neither a compact string, JSON nor YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid song: %w", err)
	}
	return s, nil
}

func isCompact(data []byte) bool {
	for i, c := range data {
		if c == '#' && i == 0 {
			continue
		}
		if _, ok := bitfield.SymbolValue(c); !ok {
			return false
		}
	}
	return true
}

// ToYAML dumps the Song struct as YAML, the form test fixtures are written in.
func (s *Song) ToYAML() ([]byte, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("could not marshal song: %w", err)
	}
	return b, nil
}
