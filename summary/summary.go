// Package summary describes songs through text templates. The templates get
// sprig's function map and a SongMacros value as their data.
package summary

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/chiptrack/beepbox"
)

//go:embed templates/*
var templateFS embed.FS

// DefaultTemplate is the template used when none is named.
const DefaultTemplate = "summary.txt"

type Summarizer struct {
	Template *template.Template
}

// New returns a summarizer using the built in templates.
func New() (*Summarizer, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*")
	if err != nil {
		return nil, fmt.Errorf(`could not create templates: %w`, err)
	}
	return &Summarizer{Template: tmpl}, nil
}

// NewFromTemplates parses every file of a directory, or a single file, as
// the templates.
func NewFromTemplates(pattern string) (*Summarizer, error) {
	if matches, err := filepath.Glob(filepath.Join(pattern, "*.*")); err == nil && len(matches) > 0 {
		pattern = filepath.Join(pattern, "*.*")
	}
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf(`could not create templates from "%v": %w`, pattern, err)
	}
	return &Summarizer{Template: tmpl}, nil
}

// Execute writes the named template for the song.
func (s *Summarizer) Execute(w io.Writer, name string, song *beepbox.Song, title string) error {
	if s.Template.Lookup(name) == nil {
		return fmt.Errorf("no template named %v", name)
	}
	if err := s.Template.ExecuteTemplate(w, name, NewSongMacros(song, title)); err != nil {
		return fmt.Errorf(`could not execute template "%v": %w`, name, err)
	}
	return nil
}

// String is Execute into a string.
func (s *Summarizer) String(name string, song *beepbox.Song, title string) (string, error) {
	var b bytes.Buffer
	if err := s.Execute(&b, name, song, title); err != nil {
		return "", err
	}
	return b.String(), nil
}
