package beepbox

import "math"

// Limits of the song structure.
const (
	TempoSteps                = 15
	ReverbRange               = 4
	BlendRange                = 4
	RiffRange                 = 11
	DetuneMax                 = 24 // cents, in either direction
	MuffRange                 = 4
	BeatsPerBarMin            = 1
	BeatsPerBarMax            = 16
	BarCountMin               = 1
	BarCountMax               = 128
	PatternsPerChannelMin     = 1
	PatternsPerChannelMax     = 64
	InstrumentsPerChannelMin  = 1
	InstrumentsPerChannelMax  = 10
	PitchChannelCountMin      = 1
	PitchChannelCountMax      = 12
	DrumChannelCountMin       = 0
	DrumChannelCountMax       = 4
	ChannelOctaveMax          = 4
	PitchOctaves              = 7
	MaxPitch                  = PitchOctaves * 12
	DrumCount                 = 12
	DrumInterval              = 6
	NoteSizeMax               = 3
	MaxChordSize              = 4
	InstrumentVolumes         = 5
	PanMax                    = 8
	PanCenter                 = 4
	OctaveOffsetMin           = -2
	OctaveOffsetMax           = 2
	OperatorCount             = 4
	OperatorAmplitudeMax      = 15
	ChipWaveLength            = 64
	DrumWaveLength            = 1 << 15
	SineWaveLength            = 1 << 8
	DefaultTempo              = 7
	DefaultBeatsPerBar        = 8
	DefaultBarCount           = 16
	DefaultPatternsPerChannel = 8
	DefaultLoopLength         = 4
	DefaultPitchChannels      = 4
	DefaultDrumChannels       = 1
)

// InstrumentType discriminates the synthesis model of an Instrument.
type InstrumentType int

const (
	ChipInstrument InstrumentType = iota
	FMInstrument
	NoiseInstrument
	PWMInstrument
)

var InstrumentTypeNames = []string{"chip", "FM", "noise", "PWM"}

func (t InstrumentType) String() string {
	if t < 0 || int(t) >= len(InstrumentTypeNames) {
		return "unknown"
	}
	return InstrumentTypeNames[t]
}

type Scale struct {
	Name  string
	Flags [12]bool
}

var Scales = []Scale{
	{"easy :)", [12]bool{true, false, true, false, true, false, false, true, false, true, false, false}},
	{"easy :(", [12]bool{true, false, false, true, false, true, false, true, false, false, true, false}},
	{"island :)", [12]bool{true, false, false, false, true, true, false, true, false, false, false, true}},
	{"island :(", [12]bool{true, true, false, true, false, false, false, true, true, false, false, false}},
	{"blues :)", [12]bool{true, false, true, true, true, false, false, true, false, true, false, false}},
	{"blues :(", [12]bool{true, false, false, true, false, true, true, true, false, false, true, false}},
	{"normal :)", [12]bool{true, false, true, false, true, true, false, true, false, true, false, true}},
	{"normal :(", [12]bool{true, false, true, true, false, true, false, true, true, false, true, false}},
	{"dbl harmonic :)", [12]bool{true, true, false, false, true, true, false, true, true, false, false, true}},
	{"dbl harmonic :(", [12]bool{true, false, true, true, false, false, true, true, true, false, false, true}},
	{"strange", [12]bool{true, false, true, false, true, false, true, false, true, false, true, false}},
	{"expert", [12]bool{true, true, true, true, true, true, true, true, true, true, true, true}},
}

type Key struct {
	Name      string
	BasePitch int // absolute pitch of note 0 in this key
}

var Keys = []Key{
	{"C", 12}, {"C♯", 13}, {"D", 14}, {"D♯", 15}, {"E", 16}, {"F", 17},
	{"F♯", 18}, {"G", 19}, {"G♯", 20}, {"A", 21}, {"A♯", 22}, {"B", 23},
}

// Rhythms lists the available parts per beat.
var Rhythms = []int{3, 4, 6, 8}

type SampleRate struct {
	Name string
	Hz   int
}

var SampleRates = []SampleRate{
	{"44100", 44100},
	{"48000", 48000},
	{"22050", 22050},
	{"96000", 96000},
}

// Mix selects how channels are leveled and panned.
type Mix struct {
	Name string
	// LoudnessBase is the k in the per pitch loudness compensation
	// k^(-pitch/pitchDamping).
	LoudnessBase float64
	EqualPower   bool
}

var Mixes = []Mix{
	{"Type A", 2, false},
	{"Type B", 2, true},
	{"Type C", 5, false},
}

type ChipWave struct {
	Name   string
	Volume float64
	// Samples is the single-cycle shape before resampling and DC removal.
	Samples []float64
}

var ChipWaves = []ChipWave{
	{"triangle", 1.0, []float64{1, 3, 5, 7, 9, 11, 13, 15, 15, 13, 11, 9, 7, 5, 3, 1, -1, -3, -5, -7, -9, -11, -13, -15, -15, -13, -11, -9, -7, -5, -3, -1}},
	{"square", 0.5, []float64{1, -1}},
	{"pulse wide", 0.5, []float64{1, -1, -1, -1}},
	{"pulse narrow", 0.5, []float64{1, -1, -1, -1, -1, -1, -1, -1}},
	{"sawtooth", 0.65, sawtooth(32)},
	{"double saw", 0.5, []float64{0, -0.2, -0.4, -0.6, -0.8, -1.0, 1.0, -0.8, -0.6, -0.4, -0.2, 1.0, 0.8, 0.6, 0.4, 0.2}},
	{"double pulse", 0.4, []float64{1, 1, 1, 1, 1, -1, -1, -1, 1, 1, 1, 1, -1, -1, -1, -1}},
	{"spiky", 0.4, []float64{1, -1, 1, -1, 1, 0}},
	{"plateau", 0.94, []float64{0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1, 1, 1, 1, 1, 1, 1, 1, 0.95, 0.9, 0.85, 0.8, 0.7, 0.6, 0.5, 0.4, 0.2, 0, -0.2, -0.4, -0.5, -0.6, -0.7, -0.8, -0.85, -0.9, -0.95, -1, -1, -1, -1, -1, -1, -1, -1, -0.95, -0.9, -0.85, -0.8, -0.7, -0.6, -0.5, -0.4, -0.2}},
}

func sawtooth(n int) []float64 {
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = float64(2*i+1)/float64(n) - 1
	}
	return ret
}

// DrumKind tells how a drum table is generated.
type DrumKind int

const (
	DrumLFSR DrumKind = iota
	DrumUniform
	DrumSpectrum
)

type Drum struct {
	Name      string
	Kind      DrumKind
	Volume    float64
	BasePitch int
	Soft      bool
	// Feedback is added to the shift register when its two lowest bits
	// differ (LFSR drums only).
	Feedback int
	// Seed initializes the random generator of uniform and spectrum drums.
	Seed uint64
	// Spectrum parameters: octave range, power range and slope.
	LowOctave, HighOctave float64
	LowPower, HighPower   float64
	Slope                 float64
}

var Drums = []Drum{
	{Name: "retro", Kind: DrumLFSR, Volume: 0.25, BasePitch: 69, Feedback: 1 << 14},
	{Name: "white", Kind: DrumUniform, Volume: 1.0, BasePitch: 69, Seed: 1},
	{Name: "clang", Kind: DrumLFSR, Volume: 0.4, BasePitch: 69, Feedback: 2 << 14},
	{Name: "buzz", Kind: DrumLFSR, Volume: 0.3, BasePitch: 69, Feedback: 10 << 2},
	{Name: "hollow", Kind: DrumSpectrum, Volume: 1.5, BasePitch: 96, Soft: true, Seed: 2, LowOctave: 1, HighOctave: 10, LowPower: -2, HighPower: 0, Slope: 0},
	{Name: "shine", Kind: DrumLFSR, Volume: 0.3, BasePitch: 69, Feedback: 1 << 12},
	{Name: "deep", Kind: DrumSpectrum, Volume: 1.5, BasePitch: 120, Soft: true, Seed: 3, LowOctave: 1, HighOctave: 10, LowPower: 2, HighPower: -2, Slope: 0.5},
	{Name: "static", Kind: DrumUniform, Volume: 0.8, BasePitch: 69, Seed: 4},
	{Name: "metallic", Kind: DrumLFSR, Volume: 0.4, BasePitch: 69, Feedback: 3 << 13},
}

type Filter struct {
	Name   string
	Base   float64 // cutoff in octaves below the sample rate
	Decay  float64 // octaves per second
	Volume float64
}

var Filters = []Filter{
	{"none", 0.0, 0.0, 0.2},
	{"bright", 2.0, 0.0, 0.4},
	{"medium", 3.5, 0.0, 0.7},
	{"soft", 5.0, 0.0, 1.0},
	{"decay bright", 1.0, 10.0, 0.5},
	{"decay medium", 2.5, 7.0, 0.75},
	{"decay soft", 4.0, 3.0, 1.0},
}

type Transition int

const (
	TransitionSeamless Transition = iota
	TransitionSudden
	TransitionSmooth
	TransitionSlide
	TransitionTrill
	TransitionClick
	TransitionBow
	TransitionBlip
)

var TransitionNames = []string{"seamless", "sudden", "smooth", "slide", "trill", "click", "bow", "blip"}

type Effect struct {
	Name         string
	Vibrato      float64 // depth in semitones
	VibratoDelay int     // parts after note start
	Tremolo      float64
}

var Effects = []Effect{
	{"none", 0, 0, 0},
	{"vibrato light", 0.15, 0, 0},
	{"vibrato delayed", 0.3, 3, 0},
	{"vibrato heavy", 0.45, 0, 0},
	{"tremolo light", 0, 0, 0.25},
	{"tremolo heavy", 0, 0, 0.5},
}

type Chorus struct {
	Name     string
	Interval float64 // semitones between the two oscillators
	Offset   float64 // semitones both oscillators are shifted by
	Volume   float64
	Sign     float64
}

var Choruses = []Chorus{
	{"union", 0.0, 0.0, 0.7, 1},
	{"shimmer", 0.02, 0.0, 0.8, 1},
	{"hum", 0.05, 0.0, 1.0, 1},
	{"honky tonk", 0.1, 0.0, 1.0, 1},
	{"dissonant", 0.25, 0.0, 0.9, 1},
	{"fifths", 3.5, 3.5, 0.9, 1},
	{"octaves", 6.0, 6.0, 0.8, 1},
	{"bowed", 0.02, 0.0, 1.0, -1},
}

type Harmony int

const (
	HarmonyArpeggio Harmony = iota
	HarmonyDuet
	HarmonyChord
	HarmonySeventh
	HarmonyHalfArpeggio
	HarmonyArpChord
)

var HarmonyNames = []string{"arpeggio", "duet", "chord", "seventh", "half arpeggio", "arp-chord"}

// VolumeValues are attenuations in octaves, index 0 being the loudest.
var VolumeValues = [InstrumentVolumes]float64{0.0, 0.5, 1.0, 1.5, 2.0}

// VolumeMult returns the linear gain of an instrument volume setting.
func VolumeMult(volume int) float64 {
	if volume < 0 || volume >= InstrumentVolumes {
		return 0
	}
	return math.Pow(2, -VolumeValues[volume])
}

type PulseWidth struct {
	Name  string
	Width float64
}

var PulseWidths = []PulseWidth{
	{"50%", 0.5},
	{"37.5%", 0.375},
	{"25%", 0.25},
	{"18.75%", 0.1875},
	{"12.5%", 0.125},
	{"9.375%", 0.09375},
	{"6.25%", 0.0625},
	{"3.125%", 0.03125},
}

type Algorithm struct {
	Name         string
	CarrierCount int
	// AssociatedCarrier tells which carrier (0-based) each operator is
	// grouped with; carriers past the first can play a harmony pitch.
	AssociatedCarrier [OperatorCount]int
	// ModulatedBy lists, per operator, the 0-based operators feeding its
	// phase. Modulators always have a higher index than the operator.
	ModulatedBy [OperatorCount][]int
}

var Algorithms = []Algorithm{
	{"1←(2 3 4)", 1, [4]int{0, 0, 0, 0}, [4][]int{{1, 2, 3}, {}, {}, {}}},
	{"1←(2 3←4)", 1, [4]int{0, 0, 0, 0}, [4][]int{{1, 2}, {}, {3}, {}}},
	{"1←2←(3 4)", 1, [4]int{0, 0, 0, 0}, [4][]int{{1}, {2, 3}, {}, {}}},
	{"1←(2 3)←4", 1, [4]int{0, 0, 0, 0}, [4][]int{{1, 2}, {3}, {3}, {}}},
	{"1←2←3←4", 1, [4]int{0, 0, 0, 0}, [4][]int{{1}, {2}, {3}, {}}},
	{"1←3 2←4", 2, [4]int{0, 1, 0, 1}, [4][]int{{2}, {3}, {}, {}}},
	{"1 2←(3 4)", 2, [4]int{0, 1, 1, 1}, [4][]int{{}, {2, 3}, {}, {}}},
	{"1 2←3←4", 2, [4]int{0, 1, 1, 1}, [4][]int{{}, {2}, {3}, {}}},
	{"(1 2)←3←4", 2, [4]int{0, 1, 1, 1}, [4][]int{{2}, {2}, {3}, {}}},
	{"(1 2)←(3 4)", 2, [4]int{0, 1, 1, 1}, [4][]int{{2, 3}, {2, 3}, {}, {}}},
	{"1 2 3←4", 3, [4]int{0, 1, 2, 2}, [4][]int{{}, {}, {3}, {}}},
	{"(1 2 3)←4", 3, [4]int{0, 1, 2, 2}, [4][]int{{3}, {3}, {3}, {}}},
	{"1 2 3 4", 4, [4]int{0, 1, 2, 3}, [4][]int{{}, {}, {}, {}}},
}

type Feedback struct {
	Name string
	// Indices lists, per operator, the 0-based operators whose previous
	// output is fed back into its phase.
	Indices [OperatorCount][]int
}

var Feedbacks = []Feedback{
	{"1⟲", [4][]int{{0}, {}, {}, {}}},
	{"2⟲", [4][]int{{}, {1}, {}, {}}},
	{"3⟲", [4][]int{{}, {}, {2}, {}}},
	{"4⟲", [4][]int{{}, {}, {}, {3}}},
	{"1⟲ 2⟲", [4][]int{{0}, {1}, {}, {}}},
	{"3⟲ 4⟲", [4][]int{{}, {}, {2}, {3}}},
	{"1⟲ 2⟲ 3⟲", [4][]int{{0}, {1}, {2}, {}}},
	{"2⟲ 3⟲ 4⟲", [4][]int{{}, {1}, {2}, {3}}},
	{"1⟲ 2⟲ 3⟲ 4⟲", [4][]int{{0}, {1}, {2}, {3}}},
	{"1→2", [4][]int{{}, {0}, {}, {}}},
	{"1→3", [4][]int{{}, {}, {0}, {}}},
	{"1→4", [4][]int{{}, {}, {}, {0}}},
	{"2→3", [4][]int{{}, {}, {1}, {}}},
	{"2→4", [4][]int{{}, {}, {}, {1}}},
	{"3→4", [4][]int{{}, {}, {}, {2}}},
	{"1→3 2→4", [4][]int{{}, {}, {0}, {1}}},
	{"1→4 2→3", [4][]int{{}, {}, {1}, {0}}},
	{"1→2→3→4", [4][]int{{}, {0}, {1}, {2}}},
}

type OperatorFrequency struct {
	Name          string
	Mult          float64
	HzOffset      float64
	AmplitudeSign float64
}

var OperatorFrequencies = []OperatorFrequency{
	{"1×", 1.0, 0.0, 1.0},
	{"~1×", 1.0, 1.5, -1.0},
	{"2×", 2.0, 0.0, 1.0},
	{"~2×", 2.0, -1.3, -1.0},
	{"3×", 3.0, 0.0, 1.0},
	{"4×", 4.0, 0.0, 1.0},
	{"5×", 5.0, 0.0, 1.0},
	{"6×", 6.0, 0.0, 1.0},
	{"7×", 7.0, 0.0, 1.0},
	{"8×", 8.0, 0.0, 1.0},
	{"9×", 9.0, 0.0, 1.0},
	{"11×", 11.0, 0.0, 1.0},
	{"13×", 13.0, 0.0, 1.0},
	{"16×", 16.0, 0.0, 1.0},
	{"20×", 20.0, 0.0, 1.0},
}

// OperatorCarrierIntervals detune the carriers of multi-carrier algorithms
// slightly apart, in semitones.
var OperatorCarrierIntervals = [OperatorCount]float64{0.0, 0.04, -0.073, 0.091}

// OperatorAmplitudeCurve maps an operator amplitude setting to a gain.
func OperatorAmplitudeCurve(amplitude int) float64 {
	return (math.Pow(16, float64(amplitude)/15) - 1) / 15
}

type EnvelopeType int

const (
	EnvelopeCustom EnvelopeType = iota
	EnvelopeSteady
	EnvelopePunch
	EnvelopeFlare
	EnvelopePluck
	EnvelopeSwell
	EnvelopeTremolo
	EnvelopeTremolo2
	EnvelopeDecay
	EnvelopeFlute
	EnvelopeCustomFlare
	EnvelopeCustomTremolo
)

type Envelope struct {
	Name  string
	Type  EnvelopeType
	Speed float64
}

var Envelopes = []Envelope{
	{"custom", EnvelopeCustom, 0},
	{"steady", EnvelopeSteady, 0},
	{"punch", EnvelopePunch, 0},
	{"flare 1", EnvelopeFlare, 32},
	{"flare 2", EnvelopeFlare, 8},
	{"flare 3", EnvelopeFlare, 2},
	{"pluck 1", EnvelopePluck, 32},
	{"pluck 2", EnvelopePluck, 8},
	{"pluck 3", EnvelopePluck, 2},
	{"swell 1", EnvelopeSwell, 32},
	{"swell 2", EnvelopeSwell, 8},
	{"swell 3", EnvelopeSwell, 2},
	{"tremolo 1", EnvelopeTremolo, 1},
	{"tremolo 2", EnvelopeTremolo, 2},
	{"tremolo 3", EnvelopeTremolo, 4},
	{"tremolo 4", EnvelopeTremolo2, 1},
	{"tremolo 5", EnvelopeTremolo2, 2},
	{"tremolo 6", EnvelopeTremolo2, 4},
	{"decay 1", EnvelopeDecay, 10},
	{"decay 2", EnvelopeDecay, 7},
	{"decay 3", EnvelopeDecay, 4},
	{"flute 1", EnvelopeFlute, 16},
	{"flute 2", EnvelopeFlute, 8},
	{"flute 3", EnvelopeFlute, 4},
	{"custom flare", EnvelopeCustomFlare, 0},
	{"custom tremolo", EnvelopeCustomTremolo, 0},
}

// BeatsPerMinute converts a tempo setting into beats per minute.
func BeatsPerMinute(tempo int) int {
	return int(math.Round(120 * math.Pow(2, (-4+float64(tempo))/9)))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
