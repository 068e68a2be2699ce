package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atlas/internal/gateway"
	"atlas/internal/logging"
	"atlas/internal/services"
)

const defaultGraphVersion = "v24.0"

// GraphEnvTemplate is the .env skeleton users fill in for Graph publishing.
var GraphEnvTemplate = strings.Join([]string{
	"FB_APP_ID=",
	"FB_APP_SECRET=",
	"FB_PAGE_ID=",
	"IG_USER_ID=",
	"FB_ACCESS_TOKEN=",
	"PUBLIC_BASE_URL=",
	"IMGBB_API_KEY=",
	"IG_GRAPH_VERSION=" + defaultGraphVersion,
}, "\n")

func defaultGraphConfig() gateway.GraphConfig {
	return gateway.GraphConfig{IGGraphVersion: defaultGraphVersion}
}

func defaultGraphStatus() gateway.GraphConfigStatus {
	return gateway.GraphConfigStatus{RequiredCount: 6}
}

// Instagram manages the connection settings: Graph API fields, the legacy
// login pair and the image-host fallback key. The legacy password is write
// only and is dropped when the connection view closes.
type Instagram struct {
	store   *Store
	backend Backend
	logger  *slog.Logger
}

// Open marks the connection view open and refreshes every status.
func (i *Instagram) Open(ctx context.Context) {
	i.store.update(func() { i.store.st.instagram.Open = true })
	i.Refresh(ctx)
}

// Close hides the connection view and forgets the typed password.
func (i *Instagram) Close() {
	i.store.update(func() {
		i.store.st.instagram.Open = false
		i.store.st.password = ""
	})
}

// SetAuthTab selects the graph or legacy tab.
func (i *Instagram) SetAuthTab(tab string) error {
	tab = strings.ToLower(strings.TrimSpace(tab))
	if tab != "graph" && tab != "legacy" {
		return services.Wrap(services.ErrValidation, "instagram", "auth tab", fmt.Sprintf("unknown tab %q", tab), nil)
	}
	i.store.update(func() { i.store.st.instagram.AuthTab = tab })
	return nil
}

// Refresh reloads Graph status, token status and the fallback key.
// Failures keep the previous values.
func (i *Instagram) Refresh(ctx context.Context) {
	i.RefreshGraphStatus(ctx)
	i.RefreshTokenStatus(ctx)
	i.RefreshImgBB(ctx)
}

// RefreshGraphStatus reloads how many Graph fields the backend holds.
func (i *Instagram) RefreshGraphStatus(ctx context.Context) {
	res, err := i.backend.GraphConfigStatus(ctx)
	if err != nil {
		i.logger.Debug("graph status refresh failed", logging.Error(err))
		return
	}
	if !res.Success {
		return
	}
	i.store.update(func() {
		view := &i.store.st.instagram
		if res.RequiredCount == 0 {
			res.RequiredCount = defaultGraphStatus().RequiredCount
		}
		view.GraphStatus = res
		if res.PublicBaseURL != "" {
			view.Graph.PublicBaseURL = res.PublicBaseURL
		}
	})
}

// RefreshTokenStatus reloads the access token validity.
func (i *Instagram) RefreshTokenStatus(ctx context.Context) {
	res, err := i.backend.TokenStatus(ctx)
	if err != nil {
		i.logger.Debug("token status refresh failed", logging.Error(err))
		return
	}
	var token TokenView
	if res.Success != nil && !*res.Success {
		token = TokenView{
			Configured:   true,
			NeedsRefresh: true,
			Message:      firstNonEmpty(res.Message, res.Error, "Token kontrolu basarisiz."),
		}
	} else {
		token = TokenView{
			Configured:       res.Configured,
			IsValid:          res.IsValid,
			NeedsRefresh:     res.NeedsRefresh,
			ExpiresInSeconds: res.ExpiresInSeconds,
			Message:          res.Message,
		}
	}
	i.store.update(func() {
		i.store.st.instagram.Token = token
		i.store.st.instagram.TokenText = tokenStatusText(token)
	})
}

// RefreshImgBB reloads the image-host fallback key.
func (i *Instagram) RefreshImgBB(ctx context.Context) {
	res, err := i.backend.ImgBBConfig(ctx)
	if err != nil {
		i.logger.Debug("imgbb refresh failed", logging.Error(err))
		return
	}
	if !res.Success {
		return
	}
	key := strings.TrimSpace(res.APIKey)
	i.store.update(func() {
		i.store.st.instagram.ImgBBKey = key
		i.store.st.instagram.ImgBBConfigured = key != ""
	})
}

// SaveGraphConfig stores the Graph fields on the backend.
func (i *Instagram) SaveGraphConfig(ctx context.Context, cfg gateway.GraphConfig) error {
	if strings.TrimSpace(cfg.IGGraphVersion) == "" {
		cfg.IGGraphVersion = defaultGraphVersion
	}
	i.store.update(func() { i.store.st.instagram.Graph = cfg })

	res, err := i.backend.SaveGraphConfig(ctx, cfg)
	if err != nil || !res.Success {
		reason := orUnknown(res.Error)
		if err != nil {
			reason = orUnknown(gateway.BackendMessage(err))
		}
		i.alert(AlertError, "Graph ayarlari kaydedilemedi: "+reason)
		return services.Wrap(services.ErrValidation, "instagram", "save graph config", reason, err)
	}
	i.RefreshGraphStatus(ctx)
	i.RefreshTokenStatus(ctx)
	i.alert(AlertInfo, "Graph ayarlari kaydedildi. Backend yeniden baslatmayi unutma.")
	return nil
}

// SaveImgBB stores the image-host fallback key on the backend.
func (i *Instagram) SaveImgBB(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	res, err := i.backend.SaveImgBBConfig(ctx, apiKey)
	if err != nil || !res.Success {
		reason := orUnknown(res.Error)
		if err != nil {
			reason = orUnknown(gateway.BackendMessage(err))
		}
		i.alert(AlertError, "ImgBB ayari kaydedilemedi: "+reason)
		return services.Wrap(services.ErrValidation, "instagram", "save imgbb key", reason, err)
	}
	i.RefreshImgBB(ctx)
	i.alert(AlertInfo, "ImgBB API key .env dosyasina kaydedildi.")
	return nil
}

// SaveCredentials stores the legacy login pair, resets the backend session
// and closes the connection view.
func (i *Instagram) SaveCredentials(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return services.Wrap(services.ErrValidation, "instagram", "save credentials", "username and password are required", nil)
	}
	i.store.update(func() {
		i.store.st.instagram.Username = username
		i.store.st.password = password
	})

	res, err := i.backend.SaveCredentials(ctx, gateway.Credentials{Username: username, Password: password})
	if err != nil || !res.Success {
		reason := firstNonEmpty(res.Error, "Kaydedilemedi")
		if err != nil {
			reason = firstNonEmpty(gateway.BackendMessage(err), "Kaydedilemedi")
		}
		i.alert(AlertError, "Hata: "+reason)
		return services.Wrap(services.ErrValidation, "instagram", "save credentials", reason, err)
	}
	if _, err := i.backend.ResetSession(ctx); err != nil {
		i.logger.Debug("session reset after credential save failed", logging.Error(err))
	}
	i.Close()
	i.alert(AlertInfo, "Kaydedildi. Oturum sifirlandi. Bir sonraki upload taze login ile yapilacak.")
	return nil
}

// ResetSession discards the backend's cached legacy login.
func (i *Instagram) ResetSession(ctx context.Context) error {
	res, err := i.backend.ResetSession(ctx)
	if err != nil || !res.Success {
		i.alert(AlertError, "Sifirlanamadi.")
		return services.Wrap(services.ErrValidation, "instagram", "reset session", "backend refused session reset", err)
	}
	i.alert(AlertInfo, "Oturum sifirlandi.")
	return nil
}

func (i *Instagram) alert(level AlertLevel, message string) {
	i.store.update(func() { i.store.pushAlertLocked(level, "instagram", "", message) })
}

// FormatExpiresIn renders a token lifetime as days and hours.
func FormatExpiresIn(seconds *int64) string {
	if seconds == nil {
		return "Bilinmiyor"
	}
	if *seconds <= 0 {
		return "Doldu"
	}
	days := *seconds / 86400
	hours := (*seconds % 86400) / 3600
	return fmt.Sprintf("%dg %ds", days, hours)
}

func tokenStatusText(t TokenView) string {
	switch {
	case !t.Configured:
		return "Token kontrolu icin alanlar eksik"
	case !t.IsValid:
		return firstNonEmpty(t.Message, "Gecersiz token")
	case t.ExpiresInSeconds == nil:
		return "Gecerli • Sure bilgisi Meta tarafinda donmedi"
	case *t.ExpiresInSeconds <= 0:
		return "Gecerli ama sure dolmus gorunuyor (yeni token al)"
	default:
		return "Gecerli • Kalan: " + FormatExpiresIn(t.ExpiresInSeconds)
	}
}
