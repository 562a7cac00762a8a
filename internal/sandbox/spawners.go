package sandbox

import (
	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

// spawnerHitRadius is how close a delete probe must land to a spawner.
const spawnerHitRadius = 12.0

// Spawner emits a ball on every periodic tick.
type Spawner struct {
	ID       int          `json:"id"`
	Position physics.Vec2 `json:"position"`
}

// MusicalSpawner is the drop point above a laid-out key.
type MusicalSpawner struct {
	ID       int          `json:"id"`
	Position physics.Vec2 `json:"position"`
	Note     music.Note   `json:"note"`
}

// spawnerSet holds both spawner lists. They are independent of the world:
// removing a spawner never removes a body.
type spawnerSet struct {
	nextID  int
	free    []Spawner
	musical []MusicalSpawner
}

func (s *spawnerSet) addFree(p physics.Vec2) Spawner {
	s.nextID++
	sp := Spawner{ID: s.nextID, Position: p}
	s.free = append(s.free, sp)
	return sp
}

// rebuildMusical replaces every musical spawner with one per key.
func (s *spawnerSet) rebuildMusical(keys []Key) {
	s.musical = make([]MusicalSpawner, 0, len(keys))
	for _, k := range keys {
		s.nextID++
		s.musical = append(s.musical, MusicalSpawner{ID: s.nextID, Position: k.Spawner, Note: k.Note})
	}
}

func (s *spawnerSet) removeFreeNear(p physics.Vec2) bool {
	for i, sp := range s.free {
		if sp.Position.Distance(p) < spawnerHitRadius {
			s.free = append(s.free[:i], s.free[i+1:]...)
			return true
		}
	}
	return false
}

func (s *spawnerSet) removeMusicalNear(p physics.Vec2) bool {
	for i, sp := range s.musical {
		if sp.Position.Distance(p) < spawnerHitRadius {
			s.musical = append(s.musical[:i], s.musical[i+1:]...)
			return true
		}
	}
	return false
}

// musicalFor looks up the live spawner bound to note.
func (s *spawnerSet) musicalFor(note music.Note) (MusicalSpawner, bool) {
	for _, sp := range s.musical {
		if sp.Note == note {
			return sp, true
		}
	}
	return MusicalSpawner{}, false
}

func (s *spawnerSet) clear() {
	s.free = nil
	s.musical = nil
}

func (s *spawnerSet) snapshot() ([]Spawner, []MusicalSpawner) {
	return append([]Spawner(nil), s.free...), append([]MusicalSpawner(nil), s.musical...)
}
