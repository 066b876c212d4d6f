package model

import (
	"time"

	"gorm.io/gorm"
)

// ServerProfile 保存一个 aria2 守护进程的连接参数和全局选项
type ServerProfile struct {
	gorm.Model
	Name    string `json:"name" gorm:"uniqueIndex"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	Token   string `json:"token"`
	HTTPS   bool   `json:"https_enabled"`

	Dir                     string `json:"dir"`
	MaxConcurrentDownloads  int    `json:"max_concurrent_downloads"`
	MaxOverallDownloadLimit int64  `json:"max_overall_download_limit"`
	MaxOverallUploadLimit   int64  `json:"max_overall_upload_limit"`
}

// DownloadLog 记录已结束的任务，守护进程清除结果后仍可查询
type DownloadLog struct {
	gorm.Model
	Server      string    `json:"server" gorm:"index"`
	GID         string    `json:"gid" gorm:"uniqueIndex"`
	Name        string    `json:"name"`
	Status      string    `json:"status"` // "complete", "error", "removed"
	Dir         string    `json:"dir"`
	Path        string    `json:"path"`
	TotalLength int64     `json:"total_length"`
	FinishedAt  time.Time `json:"finished_at"` // 首次观察到结束的时间
}

// GlobalConfig 存储全局配置
type GlobalConfig struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

const (
	ConfigKeyActiveProfile = "active_profile"
)
