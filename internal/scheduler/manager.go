package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/rs/zerolog/log"
)

// Target is what the scheduler keeps fresh. *session.Session satisfies it.
type Target interface {
	CheckConnection(ctx context.Context) bool
	SyncTasks(ctx context.Context) error
	SyncOptions(ctx context.Context) error
	Name() string
	RPC() downloader.Endpoint
}

type Manager struct {
	target             Target
	tasksInterval      time.Duration
	connectionInterval time.Duration

	quit chan struct{}
	wg   sync.WaitGroup

	connected bool
	endpoint  downloader.Endpoint // 上次检查的端点
}

func NewManager(target Target, tasksInterval, connectionInterval time.Duration) *Manager {
	if tasksInterval <= 0 {
		tasksInterval = 2 * time.Second
	}
	if connectionInterval <= 0 {
		connectionInterval = 5 * time.Second
	}
	return &Manager{
		target:             target,
		tasksInterval:      tasksInterval,
		connectionInterval: connectionInterval,
		quit:               make(chan struct{}),
	}
}

func (m *Manager) Start() {
	log.Info().Dur("tasks", m.tasksInterval).Dur("connection", m.connectionInterval).Msg("scheduler started")
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		tasksTicker := time.NewTicker(m.tasksInterval)
		connTicker := time.NewTicker(m.connectionInterval)
		defer tasksTicker.Stop()
		defer connTicker.Stop()

		// 立即执行一次
		m.CheckConnection()
		m.SyncTasks()

		for {
			select {
			case <-connTicker.C:
				m.CheckConnection()
			case <-tasksTicker.C:
				m.SyncTasks()
			case <-m.quit:
				return
			}
		}
	}()
}

func (m *Manager) Stop() {
	close(m.quit)
	m.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

// CheckConnection probes the daemon and pulls its options after every reconnect.
// Switching to another endpoint counts as a reconnect.
func (m *Manager) CheckConnection() {
	ctx, cancel := context.WithTimeout(context.Background(), m.connectionInterval)
	defer cancel()

	if ep := m.target.RPC(); ep != m.endpoint {
		if m.connected {
			log.Info().Str("server", m.target.Name()).Str("url", ep.URL()).Msg("scheduler: endpoint changed")
		}
		m.endpoint = ep
		m.connected = false
	}

	connected := m.target.CheckConnection(ctx)
	if connected && !m.connected {
		if err := m.target.SyncOptions(ctx); err != nil {
			log.Warn().Err(err).Str("server", m.target.Name()).Msg("scheduler: options sync failed")
		}
	}
	m.connected = connected
}

// SyncTasks refreshes the task buckets while the daemon is reachable.
func (m *Manager) SyncTasks() {
	if !m.connected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.tasksInterval)
	defer cancel()

	if err := m.target.SyncTasks(ctx); err != nil {
		log.Warn().Err(err).Str("server", m.target.Name()).Msg("scheduler: task sync failed")
	}
}
