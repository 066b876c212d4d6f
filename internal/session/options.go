package session

import (
	"fmt"
	"strconv"
)

// Global option keys understood by the session.
const (
	OptionDir                     = "dir"
	OptionMaxConcurrentDownloads  = "max-concurrent-downloads"
	OptionMaxOverallDownloadLimit = "max-overall-download-limit"
	OptionMaxOverallUploadLimit   = "max-overall-upload-limit"

	OptionSeedTime  = "seed-time"
	OptionSeedRatio = "seed-ratio"
)

// Options are the daemon-global options a session tracks.
type Options struct {
	Dir                     string `json:"dir,omitempty"`
	MaxConcurrentDownloads  int    `json:"max-concurrent-downloads"`
	MaxOverallDownloadLimit int64  `json:"max-overall-download-limit"` // bytes/s, 0 = unlimited
	MaxOverallUploadLimit   int64  `json:"max-overall-upload-limit"`   // bytes/s, 0 = unlimited
}

// DefaultOptions returns a fresh copy of the defaults for a new session.
func DefaultOptions() Options {
	return Options{
		MaxConcurrentDownloads:  5,
		MaxOverallDownloadLimit: 0,
		MaxOverallUploadLimit:   262144,
	}
}

// SeedingOptions returns the per-download options used when seeding is requested.
func SeedingOptions() map[string]string {
	return map[string]string{
		OptionSeedTime:  "43200",
		OptionSeedRatio: "10",
	}
}

// Validate rejects options the daemon would refuse: at least one concurrent download, no negative limits.
func (o Options) Validate() error {
	if o.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", OptionMaxConcurrentDownloads, o.MaxConcurrentDownloads)
	}
	if o.MaxOverallDownloadLimit < 0 {
		return fmt.Errorf("%s must not be negative, got %d", OptionMaxOverallDownloadLimit, o.MaxOverallDownloadLimit)
	}
	if o.MaxOverallUploadLimit < 0 {
		return fmt.Errorf("%s must not be negative, got %d", OptionMaxOverallUploadLimit, o.MaxOverallUploadLimit)
	}
	return nil
}

// ToRPC renders the options in the daemon's string map form. An empty Dir is left out.
func (o Options) ToRPC() map[string]string {
	m := map[string]string{
		OptionMaxConcurrentDownloads:  strconv.Itoa(o.MaxConcurrentDownloads),
		OptionMaxOverallDownloadLimit: strconv.FormatInt(o.MaxOverallDownloadLimit, 10),
		OptionMaxOverallUploadLimit:   strconv.FormatInt(o.MaxOverallUploadLimit, 10),
	}
	if o.Dir != "" {
		m[OptionDir] = o.Dir
	}
	return m
}

// overlay returns o with the daemon's dir and limits applied. Nothing is applied if any limit fails to decode.
func (o Options) overlay(raw map[string]string) (Options, error) {
	next := o
	next.Dir = raw[OptionDir]

	concurrent, err := parseCount("", OptionMaxConcurrentDownloads, raw[OptionMaxConcurrentDownloads])
	if err != nil {
		return o, err
	}
	down, err := parseCount("", OptionMaxOverallDownloadLimit, raw[OptionMaxOverallDownloadLimit])
	if err != nil {
		return o, err
	}
	up, err := parseCount("", OptionMaxOverallUploadLimit, raw[OptionMaxOverallUploadLimit])
	if err != nil {
		return o, err
	}

	next.MaxConcurrentDownloads = int(concurrent)
	next.MaxOverallDownloadLimit = down
	next.MaxOverallUploadLimit = up
	return next, nil
}
