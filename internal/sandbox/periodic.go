package sandbox

import "time"

// PeriodicSpawner owns the one repeating spawn timer of a session.
type PeriodicSpawner struct {
	timeline *Timeline
	tick     func()
	task     *Task
	interval time.Duration
}

func newPeriodicSpawner(tl *Timeline, tick func()) *PeriodicSpawner {
	return &PeriodicSpawner{timeline: tl, tick: tick}
}

// SetInterval cancels the running timer before starting one at the new
// interval, so two timers never overlap.
func (p *PeriodicSpawner) SetInterval(d time.Duration) {
	p.Stop()
	p.interval = d
	p.task = p.timeline.Every(d, p.tick)
}

func (p *PeriodicSpawner) Stop() {
	if p.task != nil {
		p.task.Cancel()
		p.task = nil
	}
}

func (p *PeriodicSpawner) Running() bool {
	return p.task != nil && p.task.Active()
}

func (p *PeriodicSpawner) Interval() time.Duration {
	return p.interval
}
