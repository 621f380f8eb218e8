package beepbox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Wav encodes interleaved stereo audio as a PCM .wav file, either 16 or 24
// bits per sample.
func Wav(w io.WriteSeeker, buffer []float32, sampleRate int, pcm16 bool) error {
	bitDepth := 24
	if pcm16 {
		bitDepth = 16
	}
	scale := float64(int(1)<<(bitDepth-1) - 1)
	data := make([]int, len(buffer))
	for i, v := range buffer {
		data[i] = int(math.Round(float64(clampSample(v)) * scale))
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("could not write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish wav file: %w", err)
	}
	return nil
}

// Raw returns the interleaved audio as little endian float32 or int16
// samples without any header.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	if pcm16 {
		int16data := make([]int16, len(buffer))
		for i, v := range buffer {
			int16data[i] = int16(math.Round(float64(clampSample(v)) * math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("could not write raw samples: %w", err)
	}
	return buf.Bytes(), nil
}

func clampSample(v float32) float32 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return v
}
