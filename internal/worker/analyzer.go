package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
)

// EnvelopeWindow is the length of audio summarized by one envelope point.
const EnvelopeWindow = 250 * time.Millisecond

// go-mp3 always decodes to 16-bit little-endian stereo.
const bytesPerFrame = 4

var previewClient = &http.Client{Timeout: 15 * time.Second}

func analyzePreview(ctx context.Context, url string) ([]domain.Beat, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("preview request: %w", err)
	}
	// #nosec G107 -- URL is a Spotify preview URL from a trusted API response
	resp, err := previewClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preview fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("preview fetch status %d", resp.StatusCode)
	}
	return Envelope(resp.Body)
}

// Envelope decodes an MP3 stream and returns its RMS loudness per
// EnvelopeWindow, scaled to [0,1] of full scale. Positions are window starts.
func Envelope(r io.Reader) ([]domain.Beat, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("preview decode failed: %w", err)
	}
	framesPerWindow := decoder.SampleRate() * int(EnvelopeWindow/time.Millisecond) / 1000
	if framesPerWindow < 1 {
		return nil, errors.New("preview has no sample rate")
	}

	var (
		beats      []domain.Beat
		sumSquares float64
		samples    int
		frames     int
		window     int
		carry      []byte
	)
	flush := func() {
		if samples == 0 {
			return
		}
		rms := math.Sqrt(sumSquares/float64(samples)) / 32768.0
		beats = append(beats, domain.Beat{
			PositionMs: float64(window) * float64(EnvelopeWindow/time.Millisecond),
			Value:      math.Min(1, rms),
		})
		window++
		sumSquares, samples, frames = 0, 0, 0
	}

	buf := make([]byte, 4096)
	for {
		n, err := decoder.Read(buf)
		data := append(carry, buf[:n]...)
		i := 0
		for ; i+bytesPerFrame <= len(data); i += bytesPerFrame {
			for ch := 0; ch < 2; ch++ {
				sample := int16(uint16(data[i+2*ch]) | uint16(data[i+2*ch+1])<<8)
				v := float64(sample)
				sumSquares += v * v
				samples++
			}
			frames++
			if frames == framesPerWindow {
				flush()
			}
		}
		carry = append(carry[:0:0], data[i:]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("preview read failed: %w", err)
		}
	}
	flush()

	if len(beats) == 0 {
		return nil, errors.New("preview contains no samples")
	}
	return beats, nil
}

// AnalyzePreviewFunc allows tests to override the analyzer implementation.
var AnalyzePreviewFunc = analyzePreview
