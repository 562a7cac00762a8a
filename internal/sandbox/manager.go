package sandbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/linechime/backend/internal/audio"
	"github.com/linechime/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Redis keys and channels.
const (
	EventsChannel = "sandbox_events"
	IdleSetKey    = "session_idle"
	snapshotTTL   = time.Hour

	publishQueueSize = 1024
)

func stateKey(id string) string      { return "session:" + id + ":state" }
func lastActiveKey(id string) string { return "last_active:session:" + id }

// Manager keeps every live session of this process.
type Manager struct {
	runners  map[string]*Runner
	rdb      *redis.Client
	cfg      *config.Config
	ctx      context.Context
	deliver  func(Event)
	watchers func(sessionID string) int
	queue    chan Event // outbound Redis publishes, nil without Redis
	mu       sync.RWMutex
}

// NewManager creates a manager. rdb may be nil, in which case events are
// delivered locally and nothing is persisted.
func NewManager(ctx context.Context, rdb *redis.Client, cfg *config.Config) *Manager {
	m := &Manager{
		runners: make(map[string]*Runner),
		rdb:     rdb,
		cfg:     cfg,
		ctx:     ctx,
	}
	if rdb != nil {
		m.queue = make(chan Event, publishQueueSize)
		go m.publishLoop(ctx)
	}
	return m
}

// SetDelivery wires local event delivery. watchers, when set, lets the
// manager skip frames nobody is looking at.
func (m *Manager) SetDelivery(deliver func(Event), watchers func(sessionID string) int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliver = deliver
	m.watchers = watchers
}

// Publish routes an event through Redis when configured, else delivers it
// locally. It never waits on Redis: events go through a bounded queue, and
// when the queue is full frames are dropped and other events are delivered
// locally.
func (m *Manager) Publish(ev Event) {
	m.mu.RLock()
	deliver, watchers := m.deliver, m.watchers
	m.mu.RUnlock()

	if ev.Type == EventFrame && watchers != nil && watchers(ev.SessionID) == 0 {
		return
	}
	if m.queue != nil && m.ctx.Err() == nil {
		select {
		case m.queue <- ev:
			return
		default:
		}
		if ev.Type == EventFrame {
			return
		}
		log.Printf("[REDIS] Publish queue full, delivering locally session=%s type=%s", ev.SessionID, ev.Type)
	}
	if deliver != nil {
		deliver(ev)
	}
}

// publishLoop drains the publish queue into Redis until ctx is done.
func (m *Manager) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.queue:
			m.publishRemote(ctx, ev)
		}
	}
}

// publishRemote sends one event to Redis, falling back to local delivery.
func (m *Manager) publishRemote(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err == nil {
		err = m.rdb.Publish(ctx, EventsChannel, data).Err()
	}
	if err == nil {
		return
	}
	log.Printf("[REDIS] Publish failed session=%s type=%s: %v", ev.SessionID, ev.Type, err)

	m.mu.RLock()
	deliver := m.deliver
	m.mu.RUnlock()
	if deliver != nil {
		deliver(ev)
	}
}

func generateToken(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func generateSessionID() string {
	return "sbx_" + generateToken(8)
}

// SampleRate is the WAV rendering rate.
func (m *Manager) SampleRate() beep.SampleRate {
	if m.cfg == nil || m.cfg.AudioSampleRate <= 0 {
		return audio.DefaultSampleRate
	}
	return beep.SampleRate(m.cfg.AudioSampleRate)
}

// Create starts a new session. Zero sizes fall back to the configured canvas.
func (m *Manager) Create(width, height float64) (*Runner, error) {
	opts := Options{Width: width, Height: height, Emit: m.Publish}
	frameHz := 0
	if m.cfg != nil {
		if opts.Width <= 0 {
			opts.Width = m.cfg.CanvasWidth
		}
		if opts.Height <= 0 {
			opts.Height = m.cfg.CanvasHeight
		}
		opts.PhysicsHz = m.cfg.PhysicsHz
		frameHz = m.cfg.FrameHz
		mode, err := ParseDrawMode(m.cfg.InputDrawMode)
		if err != nil {
			log.Printf("[SESSION] %v; using tap", err)
		}
		opts.DrawMode = mode
	}

	m.mu.Lock()
	if m.cfg != nil && m.cfg.MaxSessions > 0 && len(m.runners) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	id := generateSessionID()
	r := NewRunner(NewSession(id, opts), frameHz)
	m.runners[id] = r
	count := len(m.runners)
	m.mu.Unlock()

	r.Start(m.ctx)
	m.touch(r)
	log.Printf("[SESSION] Created session=%s size=%vx%v active=%d", id, opts.Width, opts.Height, count)
	return r, nil
}

func (m *Manager) Get(id string) (*Runner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runners[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r, nil
}

// Do runs fn on the session's goroutine, refreshes its activity and stores
// a snapshot after a successful command.
func (m *Manager) Do(ctx context.Context, id string, fn func(*Session) error) error {
	r, err := m.Get(id)
	if err != nil {
		return err
	}
	var snap Snapshot
	err = r.Do(ctx, func(s *Session) error {
		if err := fn(s); err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	})
	if errors.Is(err, ErrSessionClosed) {
		return err
	}
	m.touch(r)
	if err == nil {
		m.saveSnapshot(snap)
	}
	return err
}

// Close stops a session and removes its Redis state.
func (m *Manager) Close(id, reason string) error {
	m.mu.Lock()
	r, ok := m.runners[id]
	delete(m.runners, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	r.Close()
	if m.rdb != nil {
		m.rdb.Del(m.ctx, stateKey(id), lastActiveKey(id))
		m.rdb.ZRem(m.ctx, IdleSetKey, id)
	}
	m.Publish(NewEvent(id, EventClosed, map[string]interface{}{"reason": reason}))
	log.Printf("[SESSION] Closing session=%s reason=%s", id, reason)
	return nil
}

// CloseAll stops every session, used on shutdown.
func (m *Manager) CloseAll(reason string) {
	for _, id := range m.IDs() {
		m.Close(id, reason)
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runners)
}

func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runners))
	for id := range m.runners {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) idleTimeout() time.Duration {
	if m.cfg == nil || m.cfg.SessionIdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(m.cfg.SessionIdleMinutes) * time.Minute
}

// touch refreshes activity in memory and in the Redis idle index.
func (m *Manager) touch(r *Runner) {
	r.Touch()
	if m.rdb == nil {
		return
	}
	now := time.Now()
	pipe := m.rdb.Pipeline()
	pipe.Set(m.ctx, lastActiveKey(r.ID()), strconv.FormatInt(now.Unix(), 10), m.idleTimeout()+snapshotTTL)
	pipe.ZAdd(m.ctx, IdleSetKey, redis.Z{
		Score:  float64(now.Add(m.idleTimeout()).Unix()),
		Member: r.ID(),
	})
	if _, err := pipe.Exec(m.ctx); err != nil {
		log.Printf("[REDIS] Failed to touch session=%s: %v", r.ID(), err)
	}
}

func (m *Manager) saveSnapshot(snap Snapshot) {
	if m.rdb == nil || snap.SessionID == "" {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := m.rdb.SetEx(m.ctx, stateKey(snap.SessionID), data, snapshotTTL).Err(); err != nil {
		log.Printf("[REDIS] Failed to save snapshot session=%s: %v", snap.SessionID, err)
	}
}

// StartExpiryChecker closes idle sessions from in-memory activity. It is the
// fallback when Redis is not configured.
func (m *Manager) StartExpiryChecker(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.closeIdle(time.Now())
		}
	}
}

// closeIdle closes every session inactive for longer than the idle timeout
// and returns how many it closed.
func (m *Manager) closeIdle(now time.Time) int {
	cutoff := now.Add(-m.idleTimeout())
	m.mu.RLock()
	var idle []string
	for id, r := range m.runners {
		if r.LastActive().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		log.Printf("[IDLE] Session %s idle since before %s", id, cutoff.Format(time.RFC3339))
		m.Close(id, "idle")
	}
	return len(idle)
}
