package deck

import (
	"math"
	"sort"
	"strings"

	"github.com/ewilliams-labs/rockdj/internal/core/domain"
	"github.com/ewilliams-labs/rockdj/internal/core/slices"
	"github.com/ewilliams-labs/rockdj/internal/core/timeline"
)

var bars = []rune(" ▁▂▃▄▅▆▇█")

// lane is everything one waveform render needs.
type lane struct {
	width      int
	mapper     timeline.Mapper
	positionMs float64
	beats      []domain.Beat
	bpm        float64
	offsetMs   float64
	slices     []domain.Slice
	anchorMs   *float64
}

// columnMs is the track time at the centre of column x.
func (l lane) columnMs(x int) float64 {
	return l.mapper.PixelToPosition(float64(x) + 0.5)
}

// levels samples the beat loudness under every column, holding the last
// beat at or before the column time.
func (l lane) levels() []float64 {
	out := make([]float64, l.width)
	if len(l.beats) == 0 {
		return out
	}
	for x := range out {
		ms := l.columnMs(x)
		i := sort.Search(len(l.beats), func(i int) bool { return l.beats[i].PositionMs > ms })
		if i > 0 {
			out[x] = l.beats[i-1].Value
		}
	}
	return out
}

// waveRows renders the levels as height rows of block characters, top row
// first.
func (l lane) waveRows(height int) []string {
	levels := l.levels()
	rows := make([]string, height)
	steps := len(bars) - 1
	for r := 0; r < height; r++ {
		var b strings.Builder
		floor := (height - 1 - r) * steps
		for _, v := range levels {
			units := int(math.Round(v * float64(height*steps)))
			fill := min(max(units-floor, 0), steps)
			b.WriteRune(bars[fill])
		}
		rows[r] = b.String()
	}
	return rows
}

// gridRow marks the beat grid. Every fourth beat is a bar line.
func (l lane) gridRow() string {
	row := []rune(strings.Repeat(" ", l.width))
	if l.bpm <= 0 || l.width == 0 || l.mapper.DurationMs <= 0 {
		return string(row)
	}
	interval := 60000 / l.bpm
	for x := range row {
		from := l.mapper.PixelToPosition(float64(x))
		to := l.mapper.PixelToPosition(float64(x + 1))
		k := math.Ceil((from - l.offsetMs) / interval)
		beat := l.offsetMs + k*interval
		if beat < to && beat >= 0 {
			if int(k)%4 == 0 {
				row[x] = '┃'
			} else {
				row[x] = '╎'
			}
		}
	}
	return string(row)
}

// sliceRow draws play slices, mute slices, the draft anchor and the
// playhead.
func (l lane) sliceRow() string {
	row := []rune(strings.Repeat(" ", l.width))
	for x := range row {
		if s, ok := slices.At(l.slices, l.columnMs(x)); ok {
			if s.ShouldPlay {
				row[x] = '▓'
			} else {
				row[x] = '░'
			}
		}
	}
	if l.anchorMs != nil {
		if x := l.column(*l.anchorMs); x >= 0 {
			row[x] = '^'
		}
	}
	return string(row)
}

// column returns the column showing ms, or -1 when it is off screen.
func (l lane) column(ms float64) int {
	x := int(math.Floor(l.mapper.PositionToPixel(ms)))
	if x < 0 || x >= l.width {
		return -1
	}
	return x
}
