package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/rs/zerolog/log"
)

// Daemon describes how the managed aria2c should listen.
type Daemon struct {
	Endpoint downloader.Endpoint
	Dir      string
}

// Args builds the aria2c command line for d. Session and log files live in dataDir.
func (d Daemon) Args(dataDir string) []string {
	sessionFile := filepath.Join(dataDir, "aria2.session")
	args := []string{
		"--enable-rpc=true",
		"--rpc-listen-all=false",
		"--rpc-listen-port=" + strconv.Itoa(d.Endpoint.Port),
		"--rpc-allow-origin-all=true",
		"--input-file=" + sessionFile,
		"--save-session=" + sessionFile,
		"--save-session-interval=60",
		"--log=" + filepath.Join(dataDir, "aria2.log"),
		"--log-level=notice",
	}
	if d.Endpoint.Token != "" {
		args = append(args, "--rpc-secret="+d.Endpoint.Token)
	}
	if d.Dir != "" {
		args = append(args, "--dir="+d.Dir)
	}
	return args
}

func (m *Manager) startAria2(d Daemon) error {
	binPath, err := exec.LookPath(m.Binary)
	if err != nil {
		log.Warn().Str("binary", m.Binary).Msg("aria2c binary not found, skipping managed start")
		return nil
	}

	// --input-file 不存在时 aria2c 会报错
	sessionFile := filepath.Join(m.DataDir, "aria2.session")
	f, err := os.OpenFile(sessionFile, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	f.Close()

	cmd := exec.CommandContext(m.Ctx, binPath, d.Args(m.DataDir)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start aria2c: %w", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := cmd.Wait(); err != nil && m.Ctx.Err() == nil {
			log.Error().Err(err).Msg("aria2c process exited with error")
		}
	}()

	log.Info().Int("port", d.Endpoint.Port).Msg("aria2c started")
	return nil
}
