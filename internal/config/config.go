package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Aria2    Aria2Config    `mapstructure:"aria2"`
	Options  OptionsConfig  `mapstructure:"options"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug or release
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Aria2Config describes the default daemon endpoint and how the RPC client talks to it.
type Aria2Config struct {
	Name      string        `mapstructure:"name"`
	Address   string        `mapstructure:"address"`
	Port      int           `mapstructure:"port"`
	Token     string        `mapstructure:"token"`
	HTTPS     bool          `mapstructure:"https"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	PageSize  int           `mapstructure:"page_size"`  // tellWaiting / tellStopped page
	Managed   bool          `mapstructure:"managed"`    // start aria2c as a child process
	Binary    string        `mapstructure:"binary"`
}

// OptionsConfig holds the daemon-global options applied to a fresh session.
type OptionsConfig struct {
	Dir                     string `mapstructure:"dir"`
	MaxConcurrentDownloads  int    `mapstructure:"max_concurrent_downloads"`
	MaxOverallDownloadLimit int64  `mapstructure:"max_overall_download_limit"`
	MaxOverallUploadLimit   int64  `mapstructure:"max_overall_upload_limit"`
}

type SyncConfig struct {
	TasksInterval      time.Duration `mapstructure:"tasks_interval"`
	ConnectionInterval time.Duration `mapstructure:"connection_interval"`
}

var AppConfig *Config

func LoadConfig(configPath string) error {
	v := viper.New()

	// 默认值
	v.SetDefault("server.port", 8306)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/aria2deck.db")
	v.SetDefault("log.level", "info")

	v.SetDefault("aria2.name", "Default")
	v.SetDefault("aria2.address", "127.0.0.1")
	v.SetDefault("aria2.port", 6800)
	v.SetDefault("aria2.token", "")
	v.SetDefault("aria2.https", false)
	v.SetDefault("aria2.timeout", 10*time.Second)
	v.SetDefault("aria2.rate_limit", 0)
	v.SetDefault("aria2.page_size", 1000)
	v.SetDefault("aria2.managed", false)
	v.SetDefault("aria2.binary", "aria2c")

	v.SetDefault("options.dir", "")
	v.SetDefault("options.max_concurrent_downloads", 5)
	v.SetDefault("options.max_overall_download_limit", 0)
	v.SetDefault("options.max_overall_upload_limit", 262144)

	v.SetDefault("sync.tasks_interval", 2*time.Second)
	v.SetDefault("sync.connection_interval", 5*time.Second)

	// 配置文件路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	// 环境变量替换 (使用 ARIA2DECK_ 前缀)
	// 比如 ARIA2DECK_ARIA2_PORT=6801
	v.SetEnvPrefix("ARIA2DECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	AppConfig = &Config{}
	if err := v.Unmarshal(AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}
