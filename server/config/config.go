package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server         ServerConfig   `yaml:"server" mapstructure:"server"`
	Logging        LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Paths          PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Cookies        CookiesConfig  `yaml:"cookies" mapstructure:"cookies"`
	Download       DownloadConfig `yaml:"download" mapstructure:"download"`
	Process        ProcessConfig  `yaml:"process" mapstructure:"process"`
	Authentication AuthConfig     `yaml:"authentication" mapstructure:"authentication"`
	OpenId         OpenIdConfig   `yaml:"openid" mapstructure:"openid"`
	AutoArchive    bool           `yaml:"auto_archive" mapstructure:"auto_archive"`
	path           string
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Host    string `yaml:"host" mapstructure:"host"`
	Port    int    `yaml:"port" mapstructure:"port"`
}

type LoggingConfig struct {
	LogPath           string `yaml:"log_path" mapstructure:"log_path"`
	EnableFileLogging bool   `yaml:"enable_file_logging" mapstructure:"enable_file_logging"`
	Debug             bool   `yaml:"debug" mapstructure:"debug"`
}

type PathsConfig struct {
	DownloaderPath    string `yaml:"downloader_path" mapstructure:"downloader_path"`
	FFmpegPath        string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	DownloadPath      string `yaml:"download_path" mapstructure:"download_path"`
	CookiesPath       string `yaml:"cookies_path" mapstructure:"cookies_path"`
	LocalDatabasePath string `yaml:"local_database_path" mapstructure:"local_database_path"`
}

// Hosts listed here only work with a cookie file.
type CookiesConfig struct {
	RequiredHosts []string `yaml:"required_hosts" mapstructure:"required_hosts"`
}

type DownloadConfig struct {
	MergeOutputFormat string `yaml:"merge_output_format" mapstructure:"merge_output_format"`
	PreferredAudioExt string `yaml:"preferred_audio_ext" mapstructure:"preferred_audio_ext"`
}

type ProcessConfig struct {
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	KillGrace   time.Duration `yaml:"kill_grace" mapstructure:"kill_grace"`
}

type AuthConfig struct {
	RequireAuth  bool   `yaml:"require_auth" mapstructure:"require_auth"`
	Username     string `yaml:"username" mapstructure:"username"`
	PasswordHash string `yaml:"password" mapstructure:"password"`
	TokenSecret  string `yaml:"token_secret" mapstructure:"token_secret"`
}

type OpenIdConfig struct {
	UseOpenId      bool     `yaml:"use_openid" mapstructure:"use_openid"`
	ProviderURL    string   `yaml:"openid_provider_url" mapstructure:"openid_provider_url"`
	ClientId       string   `yaml:"openid_client_id" mapstructure:"openid_client_id"`
	ClientSecret   string   `yaml:"openid_client_secret" mapstructure:"openid_client_secret"`
	RedirectURL    string   `yaml:"openid_redirect_url" mapstructure:"openid_redirect_url"`
	EmailWhitelist []string `yaml:"openid_email_whitelist" mapstructure:"openid_email_whitelist"`
}

const (
	DefaultGracePeriod = 3 * time.Second
	DefaultKillGrace   = time.Second
)

var DefaultRequiredHosts = []string{"youtube.com", "youtu.be"}

var (
	instance     *Config
	instanceOnce sync.Once
)

func Instance() *Config {
	if instance == nil {
		instanceOnce.Do(func() {
			instance = Default()
		})
	}
	return instance
}

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 3033,
		},
		Logging: LoggingConfig{
			LogPath: "logs/yt-dlp-gui.log",
		},
		Paths: PathsConfig{
			DownloaderPath:    "yt-dlp",
			FFmpegPath:        "ffmpeg",
			DownloadPath:      ".",
			CookiesPath:       "YouTube-Cookies.txt",
			LocalDatabasePath: ".",
		},
		Cookies: CookiesConfig{
			RequiredHosts: append([]string(nil), DefaultRequiredHosts...),
		},
		Download: DownloadConfig{
			MergeOutputFormat: "mp4",
			PreferredAudioExt: "m4a",
		},
		Process: ProcessConfig{
			GracePeriod: DefaultGracePeriod,
			KillGrace:   DefaultKillGrace,
		},
	}
}

// SetPath records where the configuration was loaded from.
func (c *Config) SetPath(p string) { c.path = p }

// Path of the config file the configuration was loaded from
func (c *Config) Path() string { return c.path }

// Save writes the configuration as yaml to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0o644)
}
