package summary

import (
	"github.com/chiptrack/beepbox"
)

type (
	SongMacros struct {
		Song     *beepbox.Song
		Title    string
		Key      string
		BPM      int
		Bars     int // bars played with the loop played once
		Seconds  float64
		Compact  string
		Channels []ChannelMacros
	}

	ChannelMacros struct {
		Index       int
		Drum        bool
		Instruments []string
		Notes       int
		Bars        int // bars that play a pattern
	}
)

func NewSongMacros(s *beepbox.Song, title string) *SongMacros {
	m := &SongMacros{
		Song:    s,
		Title:   title,
		BPM:     s.BeatsPerMinute(),
		Bars:    s.BarCount,
		Compact: s.ToCompactString(),
	}
	if s.Key >= 0 && s.Key < len(beepbox.Keys) {
		m.Key = beepbox.Keys[s.Key].Name
	}
	if m.BPM > 0 {
		m.Seconds = float64(m.Bars*s.BeatsPerBar) * 60 / float64(m.BPM)
	}
	for c := range s.Channels {
		ch := &s.Channels[c]
		cm := ChannelMacros{Index: c, Drum: s.IsDrumChannel(c)}
		for _, instr := range ch.Instruments {
			cm.Instruments = append(cm.Instruments, instr.Type.String())
		}
		for bar := range s.BarCount {
			if p := s.Pattern(c, bar); p != nil {
				cm.Bars++
				cm.Notes += len(p.Notes)
			}
		}
		m.Channels = append(m.Channels, cm)
	}
	return m
}

// NoteCount is the number of notes played through the song.
func (m *SongMacros) NoteCount() int {
	n := 0
	for _, c := range m.Channels {
		n += c.Notes
	}
	return n
}
