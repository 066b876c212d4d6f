package service

import (
	"errors"
	"fmt"

	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/model"
	"github.com/pokerjest/aria2deck/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoActiveProfile = errors.New("no active server profile")

// ProfileStore 持久化服务器配置，会话本身不做持久化
type ProfileStore struct {
	DB *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{DB: db}
}

// ToProfile builds the row stored for a session configuration.
func ToProfile(name string, ep downloader.Endpoint, opts session.Options) model.ServerProfile {
	return model.ServerProfile{
		Name:                    name,
		Address:                 ep.Address,
		Port:                    ep.Port,
		Token:                   ep.Token,
		HTTPS:                   ep.HTTPS,
		Dir:                     opts.Dir,
		MaxConcurrentDownloads:  opts.MaxConcurrentDownloads,
		MaxOverallDownloadLimit: opts.MaxOverallDownloadLimit,
		MaxOverallUploadLimit:   opts.MaxOverallUploadLimit,
	}
}

// FromProfile is the inverse of ToProfile.
func FromProfile(p model.ServerProfile) (string, downloader.Endpoint, session.Options) {
	ep := downloader.Endpoint{Address: p.Address, Port: p.Port, Token: p.Token, HTTPS: p.HTTPS}
	opts := session.Options{
		Dir:                     p.Dir,
		MaxConcurrentDownloads:  p.MaxConcurrentDownloads,
		MaxOverallDownloadLimit: p.MaxOverallDownloadLimit,
		MaxOverallUploadLimit:   p.MaxOverallUploadLimit,
	}
	return p.Name, ep, opts
}

func (s *ProfileStore) List() ([]model.ServerProfile, error) {
	var profiles []model.ServerProfile
	if err := s.DB.Order("name").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *ProfileStore) Get(name string) (*model.ServerProfile, error) {
	var p model.ServerProfile
	if err := s.DB.Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Save inserts the profile or replaces the one with the same name.
func (s *ProfileStore) Save(p *model.ServerProfile) error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"address", "port", "token", "https",
			"dir", "max_concurrent_downloads", "max_overall_download_limit", "max_overall_upload_limit",
			"updated_at",
		}),
	}).Create(p).Error
}

func (s *ProfileStore) Delete(name string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("name = ?", name).Delete(&model.ServerProfile{}).Error; err != nil {
			return err
		}
		return tx.Where("key = ? AND value = ?", model.ConfigKeyActiveProfile, name).Delete(&model.GlobalConfig{}).Error
	})
}

// Activate marks the named profile as the one the server loads on start.
func (s *ProfileStore) Activate(name string) error {
	if _, err := s.Get(name); err != nil {
		return fmt.Errorf("activate %s: %w", name, err)
	}
	return s.DB.Save(&model.GlobalConfig{Key: model.ConfigKeyActiveProfile, Value: name}).Error
}

// Active returns the activated profile, or ErrNoActiveProfile.
func (s *ProfileStore) Active() (*model.ServerProfile, error) {
	var cfg model.GlobalConfig
	err := s.DB.Where("key = ?", model.ConfigKeyActiveProfile).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && cfg.Value == "") {
		return nil, ErrNoActiveProfile
	}
	if err != nil {
		return nil, err
	}

	p, err := s.Get(cfg.Value)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveProfile
	}
	return p, err
}
