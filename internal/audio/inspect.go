// Package audio decodes common audio containers just far enough to report
// duration, loudness, and stream parameters. It is a best-effort inspector:
// formats without a pure-Go decoder return ErrUnsupportedFormat and callers
// are expected to proceed without validation.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnsupportedFormat indicates no decoder exists for the input
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Info describes a decoded audio stream
type Info struct {
	DurationMs   int64
	LoudnessDBFS float64
	Channels     int
	SampleRateHz int
}

// Inspect decodes the buffer according to the declared extension-style format
// name ("wav", "mp3", "ogg", ...) and returns stream properties. FLAC, M4A
// and WebM have no pure-Go decoder here and return ErrUnsupportedFormat.
func Inspect(data []byte, format string) (*Info, error) {
	switch format {
	case "wav":
		return inspectWAV(data)
	case "mp3":
		return inspectMP3(data)
	case "ogg":
		return inspectOggVorbis(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func inspectWAV(data []byte) (*Info, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err == nil {
			err = errors.New("empty wav file")
		}
		return nil, err
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}

	ch := 1
	sr := 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}

	scale := 1.0 / float64(int64(1)<<(bd-1))
	var sumSquares float64
	for _, v := range pb.Data {
		s := float64(v) * scale
		sumSquares += s * s
	}

	frames := len(pb.Data) / ch
	return &Info{
		DurationMs:   int64(float64(frames) / float64(sr) * 1000),
		LoudnessDBFS: rmsToDBFS(sumSquares, len(pb.Data)),
		Channels:     ch,
		SampleRateHz: sr,
	}, nil
}

func inspectMP3(data []byte) (*Info, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}

	// go-mp3 always emits 16-bit stereo PCM
	samples := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &samples); err != nil {
		return nil, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}

	const scale = 1.0 / 32768.0
	var sumSquares float64
	for _, v := range samples {
		s := float64(v) * scale
		sumSquares += s * s
	}

	frames := len(samples) / 2
	return &Info{
		DurationMs:   int64(float64(frames) / float64(sr) * 1000),
		LoudnessDBFS: rmsToDBFS(sumSquares, len(samples)),
		Channels:     2,
		SampleRateHz: sr,
	}, nil
}

func inspectOggVorbis(data []byte) (*Info, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}

	var sumSquares float64
	for _, v := range pcm {
		sumSquares += float64(v) * float64(v)
	}

	frames := len(pcm) / format.Channels
	return &Info{
		DurationMs:   int64(float64(frames) / float64(format.SampleRate) * 1000),
		LoudnessDBFS: rmsToDBFS(sumSquares, len(pcm)),
		Channels:     format.Channels,
		SampleRateHz: format.SampleRate,
	}, nil
}

// rmsToDBFS converts a sum of squared normalized samples to dBFS.
// Silence floors at -120 rather than -Inf.
func rmsToDBFS(sumSquares float64, n int) float64 {
	if n == 0 {
		return -120
	}
	rms := math.Sqrt(sumSquares / float64(n))
	if rms <= 0 {
		return -120
	}
	db := 20 * math.Log10(rms)
	if db < -120 {
		return -120
	}
	return db
}
