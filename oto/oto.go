// Package oto plays a synth through the sound card.
package oto

import (
	"fmt"
	"sync"

	"github.com/chiptrack/beepbox/synth"
	"github.com/ebitengine/oto/v3"
)

// bytes per stereo frame of 16-bit samples
const frameSize = 4

// Player streams a Synth to an oto context. The synth is rendered from the
// audio thread, so every access to it (transport commands and song edits
// included) must go through Do.
type Player struct {
	mu          sync.Mutex
	synth       *synth.Synth
	left, right []float32

	ctx    *oto.Context
	player *oto.Player
}

// NewPlayer opens the audio device at the sample rate of s. Only one player
// can exist per process.
func NewPlayer(s *synth.Synth) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	p := &Player{synth: s, ctx: ctx}
	p.player = ctx.NewPlayer(p)
	return p, nil
}

// Read renders len(b)/4 frames. It is called by oto and implements
// io.Reader.
func (p *Player) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read(b), nil
}

func (p *Player) read(b []byte) int {
	frames := len(b) / frameSize
	if cap(p.left) < frames {
		p.left = make([]float32, frames)
		p.right = make([]float32, frames)
	}
	left, right := p.left[:frames], p.right[:frames]
	if p.synth == nil {
		clear(left)
		clear(right)
	} else {
		p.synth.Render(left, right)
	}
	return len(FloatBufferTo16BitLE(left, right, b[:0]))
}

// Do runs f while the audio thread is kept from rendering.
func (p *Player) Do(f func(s *synth.Synth)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(p.synth)
}

// Load replaces the synth being played. s must render at the sample rate
// the player was opened with.
func (p *Player) Load(s *synth.Synth) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.synth = s
}

// Playing reports whether the current synth is playing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.synth != nil && p.synth.Playing()
}

// Start begins pulling audio from the synth. The synth itself stays silent
// until its Play is called.
func (p *Player) Start() {
	p.player.Play()
}

// Close stops the audio stream.
func (p *Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
