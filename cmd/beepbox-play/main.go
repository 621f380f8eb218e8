package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chiptrack/beepbox"
	"github.com/chiptrack/beepbox/oto"
	"github.com/chiptrack/beepbox/smfexport"
	"github.com/chiptrack/beepbox/synth"
	"github.com/chiptrack/beepbox/version"
)

// renders longer than this are assumed to be stuck
const maxMinutes = 60

type options struct {
	directory   string
	loops       int
	intro       bool
	outro       bool
	sampleRate  int
	volume      float64
	pcm         bool
	interactive bool
}

func main() {
	var opt options
	help := flag.Bool("h", false, "Show help.")
	flag.StringVar(&opt.directory, "o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, files are written to the working directory.")
	play := flag.Bool("p", false, "Play the input songs (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered song as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered song as .wav file. By default, saves 24-bit samples.")
	midOut := flag.Bool("m", false, "Output the song as a standard MIDI file.")
	flag.BoolVar(&opt.pcm, "c", false, "Convert audio to 16-bit signed PCM when outputting.")
	flag.IntVar(&opt.loops, "loops", 0, "Number of times the loop is repeated after it has played once. Negative loops forever when playing.")
	flag.BoolVar(&opt.intro, "intro", true, "Play the bars before the loop.")
	flag.BoolVar(&opt.outro, "outro", true, "Play the bars after the loop.")
	flag.IntVar(&opt.sampleRate, "rate", 44100, "Sample rate of the rendered audio.")
	flag.Float64Var(&opt.volume, "volume", 1, "Master volume.")
	flag.BoolVar(&opt.interactive, "i", false, "Control playback from an interactive prompt; only one song can be given.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut && !*midOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	if opt.interactive && flag.NArg() != 1 {
		log.Fatalf("interactive mode takes exactly one song, got %v", flag.NArg())
	}
	var player *oto.Player
	if *play || opt.interactive {
		var err error
		player, err = oto.NewPlayer(synth.New(beepbox.NewSong(), synth.Config{SampleRate: opt.sampleRate}))
		if err != nil {
			log.Fatalf("could not open the audio device: %v", err)
		}
		player.Start()
	}
	process := func(filename string) error {
		output := func(extension string, write func(f *os.File) error) error {
			_, name := filepath.Split(filename)
			dir := opt.directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %w", dir, err)
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f, err := os.Create(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("could not create file %v: %w", name, err)
			}
			if err := write(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %w", filename, err)
		}
		song, err := beepbox.Parse(inputBytes)
		if err != nil {
			return fmt.Errorf("could not parse %v: %w", filename, err)
		}
		if *rawOut || *wavOut {
			if opt.loops < 0 {
				return fmt.Errorf("cannot render a song that loops forever, give a nonnegative -loops")
			}
			s := opt.newSynth(song)
			if err := s.Play(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			buffer, err := beepbox.Record(s, 4096, maxMinutes*60*opt.sampleRate)
			if err != nil {
				return fmt.Errorf("could not render the song: %w", err)
			}
			if *rawOut {
				raw, err := beepbox.Raw(buffer, opt.pcm)
				if err != nil {
					return fmt.Errorf("could not generate .raw file: %w", err)
				}
				if err := output(".raw", func(f *os.File) error {
					_, err := bytes.NewReader(raw).WriteTo(f)
					return err
				}); err != nil {
					return fmt.Errorf("error outputting .raw file: %w", err)
				}
			}
			if *wavOut {
				if err := output(".wav", func(f *os.File) error {
					return beepbox.Wav(f, buffer, opt.sampleRate, opt.pcm)
				}); err != nil {
					return fmt.Errorf("error outputting .wav file: %w", err)
				}
			}
		}
		if *midOut {
			if err := output(".mid", func(f *os.File) error {
				return smfexport.Write(f, song, smfexport.Options{Loops: max(opt.loops, 0)})
			}); err != nil {
				return fmt.Errorf("error outputting .mid file: %w", err)
			}
		}
		if opt.interactive {
			return repl(player, song, &opt)
		}
		if *play {
			s := opt.newSynth(song)
			player.Load(s)
			player.Do(func(s *synth.Synth) {
				if err := s.Play(); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
			})
			for player.Playing() {
				time.Sleep(50 * time.Millisecond)
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			var files []string
			for _, pattern := range []string{"*.yml", "*.json", "*.txt"} {
				matches, err := filepath.Glob(filepath.Join(param, pattern))
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not glob the path %v for %v files: %v\n", param, pattern, err)
					retval = 1
					continue
				}
				files = append(files, matches...)
			}
			for _, file := range files {
				if err := process(file); err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			if err := process(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	if player != nil {
		player.Close()
	}
	os.Exit(retval)
}

func (opt *options) newSynth(song *beepbox.Song) *synth.Synth {
	s := synth.New(song, synth.Config{SampleRate: opt.sampleRate, Volume: opt.volume})
	s.LoopCount = opt.loops
	s.EnableIntro = opt.intro
	s.EnableOutro = opt.outro
	if !opt.intro {
		s.SnapToBar(song.LoopStart)
	}
	return s
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "BeepBox command line utility for playing and rendering songs.\nSongs are compact strings, share URLs, .json or .yml files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
