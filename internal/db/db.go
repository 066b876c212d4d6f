package db

import (
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/pokerjest/aria2deck/internal/model"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the sqlite file at storagePath and migrates the schema.
func Open(storagePath string) (*gorm.DB, error) {
	// 确保存储目录存在
	dir := filepath.Dir(storagePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	conn, err := gorm.Open(sqlite.Open(storagePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// 自动迁移模式
	if err := conn.AutoMigrate(&model.ServerProfile{}, &model.DownloadLog{}, &model.GlobalConfig{}); err != nil {
		return nil, err
	}
	return conn, nil
}

func InitDB(storagePath string) {
	var err error
	DB, err = Open(storagePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", storagePath).Msg("failed to initialize database")
	}
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
