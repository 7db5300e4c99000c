package rest

import (
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/downloaders"
	"github.com/marcopiovanello/yt-dlp-gui/server/internal/session"
)

type ContainerArgs struct {
	Controller *session.Controller
	Options    downloaders.Options
}

type urlRequest struct {
	URL string `json:"url"`
}

// selectRequest picks a format by identifier, falling back to the label.
type selectRequest struct {
	FormatId string `json:"format_id"`
	Label    string `json:"label"`
}

func (s selectRequest) key() string {
	if s.FormatId != "" {
		return s.FormatId
	}
	return s.Label
}

type busyResponse struct {
	Busy bool `json:"busy"`
}

type versionResponse struct {
	RPCVersion        string `json:"rpcVersion"`
	DownloaderVersion string `json:"downloaderVersion"`
}
