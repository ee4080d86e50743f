package dsp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
)

var errUnknownFormat = errors.New("unrecognized audio container")

// decode turns media bytes into mono float64 samples in [-1, 1] plus the
// sample rate. The declared MIME type picks the decoder first; when it
// is ambiguous the magic bytes decide.
func decode(media []byte, mimeType string) ([]float64, int, error) {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "mpeg") || strings.Contains(mt, "mp3"):
		return decodeMP3(media)
	case strings.Contains(mt, "wav"):
		return decodeWAV(media)
	}

	switch {
	case bytes.HasPrefix(media, []byte("RIFF")):
		return decodeWAV(media)
	case bytes.HasPrefix(media, []byte("ID3")) || looksLikeMP3Frame(media):
		return decodeMP3(media)
	}
	return nil, 0, errUnknownFormat
}

func looksLikeMP3Frame(media []byte) bool {
	return len(media) >= 2 && media[0] == 0xFF && media[1]&0xE0 == 0xE0
}

func decodeMP3(media []byte) ([]float64, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(media))
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode: %w", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	buf := make([]byte, 8192)
	var samples []float64
	for {
		n, err := dec.Read(buf)
		for i := 0; i+3 < n; i += 4 {
			left := int16(buf[i]) | int16(buf[i+1])<<8
			right := int16(buf[i+2]) | int16(buf[i+3])<<8
			samples = append(samples, (float64(left)+float64(right))/2/32768.0)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("mp3 read: %w", err)
		}
	}
	if len(samples) == 0 {
		return nil, 0, errors.New("mp3 contains no samples")
	}
	return samples, dec.SampleRate(), nil
}

// decodeWAV reads a 16-bit PCM RIFF/WAVE stream.
func decodeWAV(media []byte) ([]float64, int, error) {
	if len(media) < 44 || !bytes.HasPrefix(media, []byte("RIFF")) || !bytes.Equal(media[8:12], []byte("WAVE")) {
		return nil, 0, errors.New("wav decode: not a RIFF/WAVE stream")
	}

	var (
		channels   int
		sampleRate int
		bitsPer    int
		data       []byte
	)

	pos := 12
	for pos+8 <= len(media) {
		chunkID := string(media[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(media[pos+4 : pos+8]))
		body := media[pos+8:]
		if chunkLen > len(body) {
			chunkLen = len(body)
		}
		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, 0, errors.New("wav decode: short fmt chunk")
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			if format != 1 {
				return nil, 0, fmt.Errorf("wav decode: unsupported format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPer = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			data = body[:chunkLen]
		}
		pos += 8 + chunkLen
		if chunkLen%2 == 1 {
			pos++
		}
	}

	if sampleRate == 0 || channels == 0 {
		return nil, 0, errors.New("wav decode: missing fmt chunk")
	}
	if bitsPer != 16 {
		return nil, 0, fmt.Errorf("wav decode: unsupported bit depth %d", bitsPer)
	}
	if len(data) == 0 {
		return nil, 0, errors.New("wav decode: missing data chunk")
	}

	frame := 2 * channels
	samples := make([]float64, 0, len(data)/frame)
	for i := 0; i+frame <= len(data); i += frame {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			v := int16(data[i+2*ch]) | int16(data[i+2*ch+1])<<8
			sum += float64(v)
		}
		samples = append(samples, sum/float64(channels)/32768.0)
	}
	if len(samples) == 0 {
		return nil, 0, errors.New("wav contains no samples")
	}
	return samples, sampleRate, nil
}
