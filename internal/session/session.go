// Package session keeps a client-side view of one aria2 daemon: its endpoint, its global options and a
// cache of its tasks split into the active, waiting, paused and stopped buckets.
//
// The cache is never the source of truth. It is refreshed by SyncTasks / SyncOptions (called after every
// mutating command, or periodically by the caller) and is stale in between.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/event"
	"github.com/rs/zerolog/log"
)

const DefaultName = "Default"

// Buckets holds the cached task lists. They are mutually exclusive by status.
type Buckets struct {
	Active  []Task `json:"active"`
	Waiting []Task `json:"waiting"`
	Paused  []Task `json:"paused"`
	Stopped []Task `json:"stopped"`
}

func emptyBuckets() Buckets {
	return Buckets{
		Active:  []Task{},
		Waiting: []Task{},
		Paused:  []Task{},
		Stopped: []Task{},
	}
}

func (b Buckets) clone() Buckets {
	return Buckets{
		Active:  append([]Task{}, b.Active...),
		Waiting: append([]Task{}, b.Waiting...),
		Paused:  append([]Task{}, b.Paused...),
		Stopped: append([]Task{}, b.Stopped...),
	}
}

// Snapshot is a copy of the session state at one instant.
type Snapshot struct {
	Name      string              `json:"name"`
	RPC       downloader.Endpoint `json:"rpc"`
	Options   Options             `json:"options"`
	Connected bool                `json:"connected"`
	Tasks     Buckets             `json:"tasks"`
}

type Session struct {
	handler downloader.Handler
	bus     event.Bus

	// seq numbers each SyncTasks call; applied remembers the newest one each bucket accepted
	seq     atomic.Uint64
	mu      sync.RWMutex
	applied map[bucket]uint64
	connSeq uint64

	name      string
	rpc       downloader.Endpoint
	options   Options
	connected bool
	tasks     Buckets
}

type Option func(*Session)

// WithHandler replaces the default JSON-RPC client. The handler is rebound to the session's endpoint.
func WithHandler(h downloader.Handler) Option {
	return func(s *Session) {
		s.handler = h
	}
}

// WithBus publishes session events on bus instead of event.GlobalBus. A nil bus disables events.
func WithBus(bus event.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// New creates a session for one daemon. rpc and options are copied.
func New(name string, rpc downloader.Endpoint, options Options, opts ...Option) *Session {
	if name == "" {
		name = DefaultName
	}
	s := &Session{
		bus:     event.GlobalBus,
		applied: make(map[bucket]uint64),
		name:    name,
		rpc:     rpc,
		options: options,
		tasks:   emptyBuckets(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handler == nil {
		s.handler = downloader.NewAria2Client(rpc)
	} else {
		s.handler.SetRPC(rpc)
	}
	return s
}

// publish only queues the event, so it is safe to call with s.mu held.
func (s *Session) publish(topic event.EventType, payload interface{}) {
	if s.bus != nil {
		s.bus.Publish(topic, payload)
	}
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) RPC() downloader.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rpc
}

func (s *Session) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Tasks returns a copy of the cached buckets.
func (s *Session) Tasks() Buckets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.clone()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Name:      s.name,
		RPC:       s.rpc,
		Options:   s.options,
		Connected: s.connected,
		Tasks:     s.tasks.clone(),
	}
}

// CheckConnection probes the daemon once with getVersion and records the outcome.
func (s *Session) CheckConnection(ctx context.Context) bool {
	_, err := s.handler.GetVersion(ctx)
	connected := err == nil

	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	name := s.name
	if changed {
		s.connSeq++
		s.publish(event.EventConnectionChanged, ConnectionChange{Server: name, Connected: connected, Seq: s.connSeq})
	}
	s.mu.Unlock()

	if err != nil {
		log.Debug().Err(err).Str("server", name).Msg("aria2 connection check failed")
	}
	if changed {
		log.Info().Str("server", name).Bool("connected", connected).Msg("aria2 connection changed")
	}
	return connected
}

// IsDownloading reports whether any cached active task is unfinished.
func (s *Session) IsDownloading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks.Active {
		if t.CompletedLength != t.TotalLength {
			return true
		}
	}
	return false
}

// ActiveNumber counts cached active and waiting tasks.
func (s *Session) ActiveNumber() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks.Active) + len(s.tasks.Waiting)
}

// SetServer reconfigures the session in place and pushes the new options to the daemon.
// With ignoreDir the previously stored dir survives the replacement. Tasks are not resynced.
func (s *Session) SetServer(ctx context.Context, name string, rpc downloader.Endpoint, options Options, ignoreDir bool) error {
	if name == "" {
		name = DefaultName
	}

	s.mu.Lock()
	dir := s.options.Dir
	s.name = name
	s.rpc = rpc
	s.options = options
	if ignoreDir {
		s.options.Dir = dir
	}
	pushed := s.options
	s.mu.Unlock()

	s.handler.SetRPC(rpc)
	return s.handler.ChangeGlobalOption(ctx, pushed.ToRPC())
}
