package launcher

import (
	"context"
	"fmt"
	"os"
	"sync"
)

type Manager struct {
	Binary  string
	DataDir string
	Ctx     context.Context
	Cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager(binary, dataDir string) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	if binary == "" {
		binary = "aria2c"
	}
	if dataDir == "" {
		dataDir = "data"
	}
	return &Manager{
		Binary:  binary,
		DataDir: dataDir,
		Ctx:     ctx,
		Cancel:  cancel,
	}
}

func (m *Manager) StartAll(d Daemon) error {
	if err := os.MkdirAll(m.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	return m.startAria2(d)
}

func (m *Manager) StopAll() {
	m.Cancel()
	m.wg.Wait()
}
