package session

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Task status methods accepted by ChangeTaskStatus.
const (
	MethodUnpause = "unpause"
	MethodPause   = "pause"
	MethodRemove  = "remove"
)

func addOptions(seeding bool) map[string]string {
	if seeding {
		return SeedingOptions()
	}
	return map[string]string{}
}

// AddURI queues the given URIs as one download and resyncs on success.
// Validating the URIs is left to the daemon.
func (s *Session) AddURI(ctx context.Context, uris []string, seeding bool) (string, error) {
	gid, err := s.handler.AddURI(ctx, uris, addOptions(seeding))
	if err != nil {
		return "", err
	}
	s.resync(ctx)
	return gid, nil
}

// AddTorrent uploads a .torrent file and resyncs on success.
func (s *Session) AddTorrent(ctx context.Context, torrent []byte, seeding bool) (string, error) {
	gid, err := s.handler.AddTorrent(ctx, torrent, addOptions(seeding))
	if err != nil {
		return "", err
	}
	s.resync(ctx)
	return gid, nil
}

// AddMetalink uploads a metalink document and resyncs on success.
func (s *Session) AddMetalink(ctx context.Context, metalink []byte, seeding bool) ([]string, error) {
	gids, err := s.handler.AddMetalink(ctx, metalink, addOptions(seeding))
	if err != nil {
		return nil, err
	}
	s.resync(ctx)
	return gids, nil
}

// ChangeTaskStatus pauses, unpauses or removes tasks. Any other method does nothing.
func (s *Session) ChangeTaskStatus(ctx context.Context, method string, gids []string) error {
	var err error
	switch method {
	case MethodUnpause:
		err = s.handler.Unpause(ctx, gids)
	case MethodPause:
		err = s.handler.Pause(ctx, gids)
	case MethodRemove:
		err = s.handler.Remove(ctx, gids)
	default:
		log.Debug().Str("method", method).Msg("ignoring unknown task status method")
		return nil
	}
	if err != nil {
		return err
	}
	s.resync(ctx)
	return nil
}

// PurgeTasks drops finished tasks from the daemon's result history.
func (s *Session) PurgeTasks(ctx context.Context, gids []string) error {
	if err := s.handler.RemoveDownloadResult(ctx, gids); err != nil {
		return err
	}
	s.resync(ctx)
	return nil
}
