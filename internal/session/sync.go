package session

import (
	"context"
	"fmt"

	"github.com/pokerjest/aria2deck/internal/event"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// bucket identifies one tellX query. tellWaiting feeds both the waiting and the paused list.
type bucket int

const (
	bucketActive bucket = iota
	bucketWaiting
	bucketStopped
)

func (b bucket) String() string {
	switch b {
	case bucketActive:
		return "active"
	case bucketWaiting:
		return "waiting"
	case bucketStopped:
		return "stopped"
	}
	return "unknown"
}

// BucketUpdate is the payload of event.EventTasksSynced. Seq is the SyncTasks call that produced it;
// a consumer that already holds a higher Seq for the same Server and Bucket can drop it.
type BucketUpdate struct {
	Server string `json:"server"`
	Bucket string `json:"bucket"`
	Seq    uint64 `json:"seq"`
	Tasks  []Task `json:"tasks"`
}

// ConnectionChange is the payload of event.EventConnectionChanged. Seq grows with every change.
type ConnectionChange struct {
	Server    string `json:"server"`
	Connected bool   `json:"connected"`
	Seq       uint64 `json:"seq"`
}

// SyncFailure is the payload of event.EventSyncFailed.
type SyncFailure struct {
	Server string `json:"server"`
	Error  string `json:"error"`
}

// apply runs fn under the lock unless a newer sync already updated b, then publishes updates while still
// holding it, so subscribers see bucket updates in the order they were applied.
func (s *Session) apply(seq uint64, b bucket, fn func(*Buckets), updates ...BucketUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied[b] {
		log.Debug().Uint64("seq", seq).Uint64("applied", s.applied[b]).Str("bucket", b.String()).Msg("discarding stale task list")
		return
	}
	s.applied[b] = seq
	fn(&s.tasks)
	for _, u := range updates {
		u.Server = s.name
		u.Seq = seq
		s.publish(event.EventTasksSynced, u)
	}
}

// SyncTasks re-queries the active, waiting and stopped lists concurrently. Each response replaces its
// bucket(s) as soon as it arrives, so the buckets need not reflect the same instant of daemon time.
// A response older than one already applied to the same bucket is dropped. Records that fail to format are
// skipped. The first error encountered is returned.
func (s *Session) SyncTasks(ctx context.Context) error {
	seq := s.seq.Add(1)
	var g errgroup.Group

	g.Go(func() error {
		raws, err := s.handler.TellActive(ctx)
		if err != nil {
			return fmt.Errorf("tell active: %w", err)
		}
		active, ferr := formatAll(raws, nil)
		s.apply(seq, bucketActive, func(b *Buckets) { b.Active = active },
			BucketUpdate{Bucket: "active", Tasks: active})
		return ferr
	})

	g.Go(func() error {
		raws, err := s.handler.TellWaiting(ctx)
		if err != nil {
			return fmt.Errorf("tell waiting: %w", err)
		}
		waiting, ferr := formatAll(raws, func(st Status) bool { return st == StatusWaiting })
		paused, _ := formatAll(raws, func(st Status) bool { return st == StatusPaused })
		s.apply(seq, bucketWaiting, func(b *Buckets) {
			b.Waiting = waiting
			b.Paused = paused
		}, BucketUpdate{Bucket: "waiting", Tasks: waiting}, BucketUpdate{Bucket: "paused", Tasks: paused})
		return ferr
	})

	g.Go(func() error {
		raws, err := s.handler.TellStopped(ctx)
		if err != nil {
			return fmt.Errorf("tell stopped: %w", err)
		}
		stopped, ferr := formatAll(raws, nil)
		s.apply(seq, bucketStopped, func(b *Buckets) { b.Stopped = stopped },
			BucketUpdate{Bucket: "stopped", Tasks: stopped})
		return ferr
	})

	return g.Wait()
}

// SyncOptions overlays the daemon's dir and transfer limits onto the local options.
func (s *Session) SyncOptions(ctx context.Context) error {
	raw, err := s.handler.GetGlobalOption(ctx)
	if err != nil {
		return fmt.Errorf("get global option: %w", err)
	}

	s.mu.Lock()
	next, err := s.options.overlay(raw)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.options = next
	name := s.name
	s.publish(event.EventOptionsSynced, next)
	s.mu.Unlock()

	log.Debug().Str("server", name).Str("dir", next.Dir).Msg("options synced")
	return nil
}

// resync refreshes the buckets after a successful command. Failures are reported, not returned.
func (s *Session) resync(ctx context.Context) {
	if err := s.SyncTasks(ctx); err != nil {
		name := s.Name()
		log.Warn().Err(err).Str("server", name).Msg("resync after command failed")
		s.publish(event.EventSyncFailed, SyncFailure{Server: name, Error: err.Error()})
	}
}
