package downloaders

import (
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/process"
)

// Options describes how the downloader executable is invoked.
type Options struct {
	Executable string

	CookiesPath   string
	RequiredHosts []string

	// DownloadPath is passed with -P unless empty or ".".
	DownloadPath string
	// FFmpegPath is passed with --ffmpeg-location when it points somewhere
	// other than the bare executable name.
	FFmpegPath string

	MergeOutputFormat string
	PreferredAudioExt string

	Process process.Options
}

// OptionsFromConfig builds invocation options from the application config.
func OptionsFromConfig(c *config.Config) Options {
	return Options{
		Executable:        c.Paths.DownloaderPath,
		CookiesPath:       c.Paths.CookiesPath,
		RequiredHosts:     c.Cookies.RequiredHosts,
		DownloadPath:      c.Paths.DownloadPath,
		FFmpegPath:        c.Paths.FFmpegPath,
		MergeOutputFormat: c.Download.MergeOutputFormat,
		PreferredAudioExt: c.Download.PreferredAudioExt,
		Process: process.Options{
			GracePeriod: c.Process.GracePeriod,
			KillGrace:   c.Process.KillGrace,
		},
	}
}

func (o Options) withDefaults() Options {
	if o.Executable == "" {
		o.Executable = "yt-dlp"
	}
	if o.MergeOutputFormat == "" {
		o.MergeOutputFormat = "mp4"
	}
	if o.PreferredAudioExt == "" {
		o.PreferredAudioExt = "m4a"
	}
	return o
}
