package sandbox

import (
	"errors"
	"fmt"

	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/physics"
)

var ErrParamOutOfRange = errors.New("parameter out of range")

// CustomTemplate draws lines whose length follows the drag.
const CustomTemplate = "custom"

// Params are the user-tunable settings of a session.
type Params struct {
	Gravity       float64 `json:"gravity"`
	Friction      float64 `json:"friction"`
	FrictionAir   float64 `json:"friction_air"`
	Restitution   float64 `json:"restitution"`
	SpawnInterval int     `json:"spawn_interval_ms"`
	Collision     bool    `json:"collision"`
	LineTemplate  string  `json:"line_template"`
	Scale         string  `json:"scale"`
	Song          string  `json:"song"`
}

func DefaultParams() Params {
	return Params{
		Gravity:       1,
		Friction:      0,
		FrictionAir:   0,
		Restitution:   1,
		SpawnInterval: 500,
		Collision:     false,
		LineTemplate:  CustomTemplate,
		Scale:         music.DefaultScale,
		Song:          music.Songs()[0].Name,
	}
}

type paramRange struct {
	min, max float64
}

var (
	gravityRange     = paramRange{0, 3}
	frictionRange    = paramRange{0, 1}
	airFrictionRange = paramRange{0, 1}
	bounceRange      = paramRange{0, 1.5}
	intervalRange    = paramRange{50, 2000}
)

func (r paramRange) check(name string, v float64) error {
	if v < r.min || v > r.max {
		return fmt.Errorf("%w: %s=%v not in [%v, %v]", ErrParamOutOfRange, name, v, r.min, r.max)
	}
	return nil
}

// ParamsPatch carries a partial update. Nil fields are left unchanged.
type ParamsPatch struct {
	Gravity       *float64 `json:"gravity"`
	Friction      *float64 `json:"friction"`
	FrictionAir   *float64 `json:"friction_air"`
	Restitution   *float64 `json:"restitution"`
	SpawnInterval *int     `json:"spawn_interval_ms"`
	Collision     *bool    `json:"collision"`
	LineTemplate  *string  `json:"line_template"`
	Scale         *string  `json:"scale"`
	Song          *string  `json:"song"`
}

// Validate rejects the whole patch if any field is out of range.
func (p ParamsPatch) Validate() error {
	if p.Gravity != nil {
		if err := gravityRange.check("gravity", *p.Gravity); err != nil {
			return err
		}
	}
	if p.Friction != nil {
		if err := frictionRange.check("friction", *p.Friction); err != nil {
			return err
		}
	}
	if p.FrictionAir != nil {
		if err := airFrictionRange.check("friction_air", *p.FrictionAir); err != nil {
			return err
		}
	}
	if p.Restitution != nil {
		if err := bounceRange.check("restitution", *p.Restitution); err != nil {
			return err
		}
	}
	if p.SpawnInterval != nil {
		if err := intervalRange.check("spawn_interval_ms", float64(*p.SpawnInterval)); err != nil {
			return err
		}
	}
	if p.LineTemplate != nil && *p.LineTemplate != CustomTemplate && !music.Known(music.Note(*p.LineTemplate)) {
		return fmt.Errorf("%w: line_template %q", ErrParamOutOfRange, *p.LineTemplate)
	}
	if p.Scale != nil {
		if _, err := music.ScaleNamed(*p.Scale); err != nil {
			return err
		}
	}
	if p.Song != nil {
		if _, err := music.SongNamed(*p.Song); err != nil {
			return err
		}
	}
	return nil
}

func (p *Params) apply(patch ParamsPatch) {
	if patch.Gravity != nil {
		p.Gravity = *patch.Gravity
	}
	if patch.Friction != nil {
		p.Friction = *patch.Friction
	}
	if patch.FrictionAir != nil {
		p.FrictionAir = *patch.FrictionAir
	}
	if patch.Restitution != nil {
		p.Restitution = *patch.Restitution
	}
	if patch.SpawnInterval != nil {
		p.SpawnInterval = *patch.SpawnInterval
	}
	if patch.Collision != nil {
		p.Collision = *patch.Collision
	}
	if patch.LineTemplate != nil {
		p.LineTemplate = *patch.LineTemplate
	}
	if patch.Scale != nil {
		p.Scale = *patch.Scale
	}
	if patch.Song != nil {
		p.Song = *patch.Song
	}
}

// ParamRanges lists the accepted bounds of every numeric parameter.
func ParamRanges() map[string][2]float64 {
	return map[string][2]float64{
		"gravity":           {gravityRange.min, gravityRange.max},
		"friction":          {frictionRange.min, frictionRange.max},
		"friction_air":      {airFrictionRange.min, airFrictionRange.max},
		"restitution":       {bounceRange.min, bounceRange.max},
		"spawn_interval_ms": {intervalRange.min, intervalRange.max},
	}
}

func (p Params) ballMaterial() physics.Material {
	return physics.Material{
		Friction:    p.Friction,
		FrictionAir: p.FrictionAir,
		Restitution: p.Restitution,
	}
}

// ballGroup is 0 when balls collide with each other, -1 when they pass through.
func (p Params) ballGroup() int {
	if p.Collision {
		return 0
	}
	return -1
}
