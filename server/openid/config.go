package openid

import (
	"context"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/marcopiovanello/yt-dlp-gui/server/config"
	"golang.org/x/oauth2"
)

var (
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	// empty when the provider does not advertise one
	endSessionURL string
)

// Configure discovers the provider. It is a no-op unless openid is enabled.
func Configure(ctx context.Context) error {
	conf := config.Instance().OpenId
	if !conf.UseOpenId {
		return nil
	}

	provider, err := oidc.NewProvider(ctx, conf.ProviderURL)
	if err != nil {
		return err
	}

	oauth2Config = oauth2.Config{
		ClientID:     conf.ClientId,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  conf.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier = provider.Verifier(&oidc.Config{
		ClientID: conf.ClientId,
	})

	var discovery struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&discovery); err != nil {
		slog.Warn("failed to read provider metadata", slog.Any("err", err))
	}
	endSessionURL = discovery.EndSessionEndpoint

	slog.Info("openid configured", slog.String("provider", conf.ProviderURL))
	return nil
}
