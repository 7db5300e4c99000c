package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/marcopiovanello/yt-dlp-gui/server"
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"github.com/marcopiovanello/yt-dlp-gui/server/errs"
	"github.com/marcopiovanello/yt-dlp-gui/server/openid"
	"github.com/marcopiovanello/yt-dlp-gui/server/user"

	"github.com/spf13/viper"
)

func main() {
	var (
		configFile   string
		writeConfig  bool
		hashPassword string
	)

	// Parse optional config path from flag
	flag.StringVar(&configFile, "conf", "./config.yml", "Config file path")
	flag.BoolVar(&writeConfig, "write-config", false, "Write the effective configuration to the config file path and exit")
	flag.StringVar(&hashPassword, "hash-password", "", "Print the hash of a password for authentication.password and exit")
	flag.Parse()

	if hashPassword != "" {
		hash, err := user.HashPassword(hashPassword)
		if err != nil {
			slog.Error("failed to hash password", slog.Any("err", err))
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	// Defaults
	defaults := config.Default()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("paths.download_path", defaults.Paths.DownloadPath)
	v.SetDefault("paths.downloader_path", defaults.Paths.DownloaderPath)
	v.SetDefault("paths.ffmpeg_path", defaults.Paths.FFmpegPath)
	v.SetDefault("paths.cookies_path", defaults.Paths.CookiesPath)
	v.SetDefault("paths.local_database_path", defaults.Paths.LocalDatabasePath)
	v.SetDefault("logging.log_path", defaults.Logging.LogPath)
	v.SetDefault("logging.enable_file_logging", false)
	v.SetDefault("cookies.required_hosts", defaults.Cookies.RequiredHosts)
	v.SetDefault("download.merge_output_format", defaults.Download.MergeOutputFormat)
	v.SetDefault("download.preferred_audio_ext", defaults.Download.PreferredAudioExt)
	v.SetDefault("process.grace_period", defaults.Process.GracePeriod)
	v.SetDefault("process.kill_grace", defaults.Process.KillGrace)
	v.SetDefault("authentication.require_auth", false)

	// Env binding
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	// Load YAML file if exists
	if err := v.ReadInConfig(); err != nil {
		slog.Debug("using defaults")
	}

	cfg := config.Instance()
	if err := v.Unmarshal(cfg); err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	cfg.SetPath(configFile)

	if writeConfig {
		if err := cfg.Save(cfg.Path()); err != nil {
			slog.Error("failed to write config", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("config written", slog.String("path", cfg.Path()))
		return
	}

	if err := checkDependencies(cfg); err != nil {
		slog.Error("cannot start", slog.Any("err", err))
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Configure OpenID if needed
	if err := openid.Configure(ctx); err != nil {
		slog.Error("failed to configure openid", slog.Any("err", err))
		os.Exit(1)
	}

	slog.Info("starting server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
	)

	if err := server.Run(ctx, &server.RunConfig{
		ShutdownTimeout: cfg.Process.GracePeriod + cfg.Process.KillGrace + 5*time.Second,
	}); err != nil {
		slog.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	slog.Info("server exited cleanly")
}

// checkDependencies resolves the downloader and ffmpeg executables, storing
// the resolved paths in cfg.
func checkDependencies(cfg *config.Config) error {
	var missing []error

	for _, p := range []*string{&cfg.Paths.DownloaderPath, &cfg.Paths.FFmpegPath} {
		resolved, err := exec.LookPath(*p)
		if err != nil {
			missing = append(missing, fmt.Errorf("%w: %s", errs.ErrMissingDependency, *p))
			continue
		}
		if abs, err := filepath.Abs(resolved); err == nil {
			resolved = abs
		}
		*p = resolved
	}

	return errors.Join(missing...)
}
