package synth

import "github.com/chiptrack/beepbox"

// chordVoicing tells, for every tick of a four tick arpeggio cycle, which
// pitch of the chord the lead and the harmony voice play. A harmony of -1
// means the harmony voice is silent.
type chordVoicing struct {
	lead    [4]int
	harmony [4]int
}

var (
	noHarmony = [4]int{-1, -1, -1, -1}

	// indexed by harmony mode, then by the number of pitches minus one
	harmonyTables = [...][beepbox.MaxChordSize]chordVoicing{
		beepbox.HarmonyArpeggio: {
			{lead: [4]int{0, 0, 0, 0}, harmony: noHarmony},
			{lead: [4]int{0, 1, 0, 1}, harmony: noHarmony},
			{lead: [4]int{0, 1, 2, 1}, harmony: noHarmony},
			{lead: [4]int{0, 1, 2, 3}, harmony: noHarmony},
		},
		beepbox.HarmonyDuet: {
			{lead: [4]int{0, 0, 0, 0}, harmony: noHarmony},
			{lead: [4]int{0, 0, 0, 0}, harmony: [4]int{1, 1, 1, 1}},
			{lead: [4]int{0, 0, 0, 0}, harmony: [4]int{1, 2, 1, 2}},
			{lead: [4]int{0, 0, 0, 0}, harmony: [4]int{1, 2, 3, 2}},
		},
		beepbox.HarmonyChord: {
			{lead: [4]int{0, 0, 0, 0}, harmony: noHarmony},
			{lead: [4]int{0, 0, 0, 0}, harmony: [4]int{1, 1, 1, 1}},
			{lead: [4]int{0, 1, 0, 1}, harmony: [4]int{2, 2, 2, 2}},
			{lead: [4]int{0, 1, 2, 1}, harmony: [4]int{3, 3, 3, 3}},
		},
		beepbox.HarmonySeventh: {
			{lead: [4]int{0, 0, 0, 0}, harmony: noHarmony},
			{lead: [4]int{0, 0, 0, 0}, harmony: [4]int{1, 1, 1, 1}},
			{lead: [4]int{0, 0, 1, 1}, harmony: [4]int{2, 2, 2, 2}},
			{lead: [4]int{0, 2, 0, 2}, harmony: [4]int{1, 3, 1, 3}},
		},
		// half arpeggio walks the arpeggio table at half speed, see voicing
		beepbox.HarmonyHalfArpeggio: {
			{lead: [4]int{0, 0, 0, 0}, harmony: noHarmony},
			{lead: [4]int{0, 1, 0, 1}, harmony: noHarmony},
			{lead: [4]int{0, 1, 2, 1}, harmony: noHarmony},
			{lead: [4]int{0, 1, 2, 3}, harmony: noHarmony},
		},
		// the root is held by the harmony voice while the lead arpeggiates
		// the rest of the chord
		beepbox.HarmonyArpChord: {
			{lead: [4]int{0, 0, 0, 0}, harmony: noHarmony},
			{lead: [4]int{1, 1, 1, 1}, harmony: [4]int{0, 0, 0, 0}},
			{lead: [4]int{1, 2, 1, 2}, harmony: [4]int{0, 0, 0, 0}},
			{lead: [4]int{1, 2, 3, 2}, harmony: [4]int{0, 0, 0, 0}},
		},
	}
)

// voicing returns the indices of the lead and harmony pitches of a chord of
// count pitches at the given arpeggio tick. Unknown modes arpeggiate.
func voicing(mode beepbox.Harmony, count, tick int) (lead, harmony int) {
	if count < 1 {
		return 0, -1
	}
	count = min(count, beepbox.MaxChordSize)
	if mode < 0 || int(mode) >= len(harmonyTables) {
		mode = beepbox.HarmonyArpeggio
	}
	if mode == beepbox.HarmonyHalfArpeggio {
		tick >>= 1
	}
	v := &harmonyTables[mode][count-1]
	return v.lead[tick&3], v.harmony[tick&3]
}
