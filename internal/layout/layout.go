// Package layout scatters pond items over a 2D area without jitter between
// renders: the same ids and seed key always give the same positions.
package layout

import "math"

// Bounds of the scatter area, in percent of the container.
const (
	MinX = 8.0
	MaxX = 92.0
	MinY = 10.0
	MaxY = 85.0

	// MaxAttempts caps the candidates drawn for one item. The last one is
	// accepted even when it is too close.
	MaxAttempts = 300

	minDuration = 6.0
	maxDuration = 12.0
	maxDelay    = 4.0
)

// Position of one item. Animation values are in seconds.
type Position struct {
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	AnimationDuration float64 `json:"animationDuration"`
	AnimationDelay    float64 `json:"animationDelay"`

	// Crowded is set when no candidate satisfied the minimum distance.
	Crowded bool `json:"crowded,omitempty"`
}

type placer struct {
	points      []Position
	minDistance float64
}

func (p *placer) fits(x, y float64) bool {
	for _, q := range p.points {
		if math.Hypot(x-q.X, y-q.Y) < p.minDistance {
			return false
		}
	}
	return true
}

func (p *placer) place(r *mulberry32) Position {
	var pos Position
	for attempt := 0; ; attempt++ {
		pos.X = r.Between(MinX, MaxX)
		pos.Y = r.Between(MinY, MaxY)
		if p.fits(pos.X, pos.Y) {
			break
		}
		if attempt+1 >= MaxAttempts {
			pos.Crowded = true
			break
		}
	}
	pos.AnimationDuration = r.Between(minDuration, maxDuration)
	pos.AnimationDelay = r.Between(0, maxDelay)
	p.points = append(p.points, pos)
	return pos
}

// Generate places every id in order from one stream seeded by seedKey.
// Changing the id list recomputes every position.
func Generate(ids []string, seedKey string, minDistance float64) map[string]Position {
	out := make(map[string]Position, len(ids))
	r := newRand(seedKey)
	p := &placer{minDistance: minDistance}
	for _, id := range ids {
		if _, dup := out[id]; dup {
			continue
		}
		out[id] = p.place(r)
	}
	return out
}

// Extend keeps the positions in prev for ids that are still listed and
// places only the new ids, each from its own stream seeded by seedKey and
// the id. Existing items never move when others are added or removed.
func Extend(prev map[string]Position, ids []string, seedKey string, minDistance float64) map[string]Position {
	out := make(map[string]Position, len(ids))
	p := &placer{minDistance: minDistance}
	for _, id := range ids {
		if pos, ok := prev[id]; ok {
			if _, dup := out[id]; !dup {
				out[id] = pos
				p.points = append(p.points, pos)
			}
		}
	}
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		out[id] = p.place(newRand(seedKey + "\x00" + id))
	}
	return out
}
