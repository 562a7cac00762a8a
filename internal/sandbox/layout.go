package sandbox

import (
	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

const (
	maxColumns           = 6
	minHorizontalPadding = 100.0
	maxHorizontalPadding = 300.0
	minVerticalSpacing   = 180.0
	maxVerticalSpacing   = 250.0
	usableHeightFraction = 0.6
	spawnerLift          = 150.0

	// Drop points never go higher than this, so balls start below the top wall.
	spawnerTopClearance = wallThickness/2 + 2*BallRadius
)

// Key is one laid-out note: a horizontal line sounding the note and the
// musical spawner point above it.
type Key struct {
	Note    music.Note   `json:"note"`
	Center  physics.Vec2 `json:"center"`
	Length  float64      `json:"length"`
	Spawner physics.Vec2 `json:"spawner"`
}

func columnsFor(count int) int {
	switch {
	case count <= maxColumns:
		return count
	case count <= 2*maxColumns:
		return (count + 1) / 2
	default:
		return maxColumns
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LayoutScale places notes on a grid centred in a width×height canvas.
// It is pure: the same input always yields the same keys. An empty note
// list yields no keys.
func LayoutScale(notes []music.Note, width, height float64) ([]Key, error) {
	count := len(notes)
	if count == 0 {
		return nil, nil
	}

	cols := columnsFor(count)
	rows := (count + cols - 1) / cols

	padding := clamp(width*0.1, minHorizontalPadding, maxHorizontalPadding)
	hSpacing := 0.0
	if cols > 1 {
		hSpacing = (width - padding) / float64(cols-1)
	}
	vSpacing := 0.0
	if rows > 1 {
		vSpacing = clamp(height*usableHeightFraction/float64(rows-1), minVerticalSpacing, maxVerticalSpacing)
	}
	startY := (height - float64(rows-1)*vSpacing) / 2

	keys := make([]Key, 0, count)
	for i, note := range notes {
		length, err := music.LengthOf(note)
		if err != nil {
			return nil, err
		}

		row, col := i/cols, i%cols
		inRow := cols
		if row == rows-1 {
			inRow = count - row*cols
		}

		y := startY + float64(row)*vSpacing
		x := padding/2 + float64(col)*hSpacing
		switch {
		case cols == 1:
			x = width / 2
		case inRow < cols && rows > 1:
			// short last row is centred on its own
			rowWidth := float64(inRow-1) * hSpacing
			x = (width-rowWidth)/2 + float64(col)*hSpacing
		}

		dropY := y - spawnerLift
		if dropY < spawnerTopClearance {
			dropY = spawnerTopClearance
		}
		keys = append(keys, Key{
			Note:    note,
			Center:  physics.NewVec2(x, y),
			Length:  length,
			Spawner: physics.NewVec2(x, dropY),
		})
	}
	return keys, nil
}
