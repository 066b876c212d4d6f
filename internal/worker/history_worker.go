package worker

import (
	"sync"
	"time"

	"github.com/pokerjest/aria2deck/internal/event"
	"github.com/pokerjest/aria2deck/internal/model"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryRecorder 把 stopped 桶中已结束的任务写入 download_logs
type HistoryRecorder struct {
	DB    *gorm.DB
	Bus   event.Bus
	subID string

	mu      sync.Mutex
	lastSeq map[string]uint64 // 每个服务器最近一次记录的同步序号
}

func NewHistoryRecorder(db *gorm.DB, bus event.Bus) *HistoryRecorder {
	return &HistoryRecorder{DB: db, Bus: bus, lastSeq: make(map[string]uint64)}
}

func (r *HistoryRecorder) Start() {
	r.subID = event.On(r.Bus, event.EventTasksSynced, r.handle)
}

func (r *HistoryRecorder) handle(update session.BucketUpdate) {
	if update.Bucket != "stopped" || r.stale(update) {
		return
	}
	if err := r.Record(update.Server, update.Tasks); err != nil {
		log.Error().Err(err).Str("server", update.Server).Msg("worker: failed to record finished tasks")
	}
}

// stale reports whether a newer stopped list for the same server was already recorded.
func (r *HistoryRecorder) stale(update session.BucketUpdate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if update.Seq < r.lastSeq[update.Server] {
		log.Debug().Uint64("seq", update.Seq).Str("server", update.Server).Msg("worker: dropping stale stopped list")
		return true
	}
	r.lastSeq[update.Server] = update.Seq
	return false
}

func (r *HistoryRecorder) Stop() {
	if r.subID != "" {
		r.Bus.Unsubscribe(event.EventTasksSynced, r.subID)
		r.subID = ""
	}
}

// Record upserts finished tasks by GID. FinishedAt keeps the time a task was first seen finished.
func (r *HistoryRecorder) Record(server string, tasks []session.Task) error {
	now := time.Now()
	logs := make([]model.DownloadLog, 0, len(tasks))
	for _, t := range tasks {
		if !t.Status.IsFinished() {
			continue
		}
		logs = append(logs, model.DownloadLog{
			Server:      server,
			GID:         t.GID,
			Name:        t.Name,
			Status:      t.Status.String(),
			Dir:         t.Dir,
			Path:        t.Path,
			TotalLength: t.TotalLength,
			FinishedAt:  now,
		})
	}
	if len(logs) == 0 {
		return nil
	}

	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gid"}},
		DoUpdates: clause.AssignmentColumns([]string{"server", "name", "status", "dir", "path", "total_length", "updated_at"}),
	}).Create(&logs).Error
}

// History returns the most recent finished tasks, newest first.
func History(db *gorm.DB, limit int) ([]model.DownloadLog, error) {
	var logs []model.DownloadLog
	q := db.Order("finished_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
