package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chiptrack/beepbox"
	"github.com/chiptrack/beepbox/oto"
	"github.com/chiptrack/beepbox/synth"
	"github.com/chzyer/readline"
)

var errQuit = errors.New("quit")

type command struct {
	name  string
	usage string
	arity int
	run   func(s *synth.Synth, args []string) error
}

var commands = []command{
	{"play", "start playback", 0, func(s *synth.Synth, _ []string) error { return s.Play() }},
	{"pause", "pause playback", 0, func(s *synth.Synth, _ []string) error { s.Pause(); return nil }},
	{"start", "jump to the start of the song", 0, func(s *synth.Synth, _ []string) error { s.SnapToStart(); return nil }},
	{"next", "jump to the next bar", 0, func(s *synth.Synth, _ []string) error { s.NextBar(); return nil }},
	{"prev", "jump to the previous bar", 0, func(s *synth.Synth, _ []string) error { s.PrevBar(); return nil }},
	{"bar", "jump to bar N, counting from 1", 1, barCommand},
	{"seek", "move the playhead to a fractional bar, counting from 0", 1, seekCommand},
	{"loops", "set the remaining loop count, negative loops forever", 1, loopsCommand},
	{"intro", "on or off", 1, func(s *synth.Synth, args []string) error { return setFlag(&s.EnableIntro, args[0]) }},
	{"outro", "on or off", 1, func(s *synth.Synth, args []string) error { return setFlag(&s.EnableOutro, args[0]) }},
	{"pos", "print the position", 0, posCommand},
	{"quit", "exit", 0, func(*synth.Synth, []string) error { return errQuit }},
}

func barCommand(s *synth.Synth, args []string) error {
	bar, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bar number: %w", err)
	}
	s.SnapToBar(bar - 1)
	return nil
}

func seekCommand(s *synth.Synth, args []string) error {
	bars, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("playhead: %w", err)
	}
	s.SetPlayhead(bars)
	return nil
}

func loopsCommand(s *synth.Synth, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("loop count: %w", err)
	}
	s.LoopCount = n
	return nil
}

func posCommand(s *synth.Synth, _ []string) error {
	p := s.Position()
	state := "paused"
	if s.Playing() {
		state = "playing"
	}
	fmt.Printf("%s bar %d beat %d part %d (%.3f bars), loops left %d\n", state, p.Bar+1, p.Beat+1, p.Part+1, s.Playhead(), s.LoopCount)
	return nil
}

func setFlag(f *bool, arg string) error {
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		*f = true
	case "off", "false", "0":
		*f = false
	default:
		return fmt.Errorf("expected on or off, got %q", arg)
	}
	return nil
}

func eval(player *oto.Player, line string) error {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	if name == "help" {
		for _, cmd := range commands {
			fmt.Printf("%-6s %s\n", cmd.name, cmd.usage)
		}
		return nil
	}
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if len(args) != cmd.arity {
			return fmt.Errorf("%s: wrong number of arguments: want %v, got %v", cmd.name, cmd.arity, len(args))
		}
		var err error
		player.Do(func(s *synth.Synth) { err = cmd.run(s, args) })
		if err != nil && !errors.Is(err, errQuit) {
			return fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return err
	}
	return fmt.Errorf("unknown command: %s, try help", name)
}

// repl plays the song and reads transport commands until quit or end of
// input.
func repl(player *oto.Player, song *beepbox.Song, opt *options) error {
	s := opt.newSynth(song)
	player.Load(s)
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if err == io.EOF || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if err := eval(player, line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			fmt.Println(err)
		}
	}
}
