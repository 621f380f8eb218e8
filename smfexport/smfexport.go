// Package smfexport writes songs as Standard MIDI Files.
package smfexport

import (
	"fmt"
	"io"
	"sort"

	"github.com/chiptrack/beepbox"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Options control the export. The zero value exports the song once through,
// playing the loop a single time, at 960 ticks per quarter note.
type Options struct {
	// Loops is the number of extra times the loop section is repeated.
	Loops int
	// TicksPerQuarter is the time resolution of the file; it should be
	// divisible by the parts per beat of the song.
	TicksPerQuarter uint16
}

// drumChannel is MIDI channel 10, counting from one.
const drumChannel = 9

// gmDrumKeys maps drum pitches, low to high, to General MIDI percussion.
var gmDrumKeys = [beepbox.DrumCount]uint8{
	35, // acoustic bass drum
	36, // bass drum
	41, // low floor tom
	38, // snare
	43, // high floor tom
	40, // electric snare
	45, // low tom
	39, // hand clap
	48, // hi mid tom
	42, // closed hi-hat
	46, // open hi-hat
	49, // crash
}

type event struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// Write encodes song as a format 1 MIDI file: a conductor track with the
// tempo and the meter, then one track per channel.
func Write(w io.Writer, song *beepbox.Song, opt Options) error {
	s, err := Build(song, opt)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("could not write midi file: %w", err)
	}
	return nil
}

// Build converts song into an in-memory MIDI file.
func Build(song *beepbox.Song, opt Options) (*smf.SMF, error) {
	if opt.TicksPerQuarter == 0 {
		opt.TicksPerQuarter = 960
	}
	if opt.Loops < 0 {
		return nil, fmt.Errorf("negative loop count %v", opt.Loops)
	}
	if song.PartsPerBeat <= 0 || song.BeatsPerBar <= 0 {
		return nil, fmt.Errorf("song has no parts per bar")
	}
	ticksPerPart := uint32(opt.TicksPerQuarter) / uint32(song.PartsPerBeat)
	if ticksPerPart == 0 {
		return nil, fmt.Errorf("%v ticks per quarter cannot resolve %v parts per beat", opt.TicksPerQuarter, song.PartsPerBeat)
	}
	ticksPerBar := ticksPerPart * uint32(song.PartsPerBar())
	order := barOrder(song, opt.Loops)
	end := ticksPerBar * uint32(len(order))

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opt.TicksPerQuarter)
	var conductor smf.Track
	conductor.Add(0, smf.MetaMeter(uint8(min(song.BeatsPerBar, 255)), 4))
	conductor.Add(0, smf.MetaTempo(float64(song.BeatsPerMinute())))
	conductor.Close(end)
	if err := s.Add(conductor); err != nil {
		return nil, fmt.Errorf("error adding conductor track: %w", err)
	}
	pitchChannels := 0
	for c := range song.Channels {
		var channel uint8 = drumChannel
		name := fmt.Sprintf("drums %d", c-song.PitchChannelCount+1)
		if !song.IsDrumChannel(c) {
			channel = midiChannel(pitchChannels)
			pitchChannels++
			name = fmt.Sprintf("channel %d", c+1)
		}
		var events []event
		for i, bar := range order {
			pattern := song.Pattern(c, bar)
			if pattern == nil {
				continue
			}
			instr := song.Instrument(c, pattern)
			if instr == nil || instr.Mute {
				continue
			}
			barStart := uint32(i) * ticksPerBar
			for _, n := range pattern.Notes {
				if len(n.Pins) == 0 || n.Pins[0].Volume == 0 {
					continue
				}
				on := barStart + uint32(n.Start)*ticksPerPart
				off := barStart + uint32(n.End)*ticksPerPart
				velocity := velocityOf(n.Pins[0].Volume)
				for _, p := range n.Pitches {
					key := keyOf(song, c, instr, p+n.Pins[0].Interval)
					events = append(events,
						event{tick: on, msg: midi.NoteOn(channel, key, velocity)},
						event{tick: off, off: true, msg: midi.NoteOff(channel, key)})
				}
			}
		}
		track := toTrack(name, events, end)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("error adding track %d: %w", c, err)
		}
	}
	return s, nil
}

// barOrder lists the bars in playing order: the intro, the loop played
// 1+loops times, then the outro.
func barOrder(song *beepbox.Song, loops int) []int {
	loopStart := max(0, min(song.LoopStart, song.BarCount))
	loopEnd := max(loopStart, min(song.LoopStart+song.LoopLength, song.BarCount))
	var order []int
	for bar := range loopStart {
		order = append(order, bar)
	}
	for range loops + 1 {
		for bar := loopStart; bar < loopEnd; bar++ {
			order = append(order, bar)
		}
	}
	for bar := loopEnd; bar < song.BarCount; bar++ {
		order = append(order, bar)
	}
	return order
}

// midiChannel assigns pitch channels to MIDI channels, skipping the drum
// channel.
func midiChannel(i int) uint8 {
	i %= 15
	if i >= drumChannel {
		i++
	}
	return uint8(i)
}

func keyOf(song *beepbox.Song, c int, instr *beepbox.Instrument, pitch int) uint8 {
	if song.IsDrumChannel(c) {
		return gmDrumKeys[min(max(pitch, 0), beepbox.DrumCount-1)]
	}
	key := beepbox.Keys[min(max(song.Key, 0), len(beepbox.Keys)-1)].BasePitch
	k := key + 12*(song.Channels[c].Octave+instr.Octave) + pitch
	return uint8(min(max(k, 0), 127))
}

func velocityOf(size int) uint8 {
	size = min(max(size, 0), beepbox.NoteSizeMax)
	return uint8(1 + size*126/beepbox.NoteSizeMax)
}

// toTrack sorts events by time, note offs first, and turns them into a
// track of delta times.
func toTrack(name string, events []event, end uint32) smf.Track {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})
	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(name))
	var last uint32
	for _, e := range events {
		track.Add(e.tick-last, e.msg)
		last = e.tick
	}
	track.Close(end - last)
	return track
}
