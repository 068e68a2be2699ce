package panel

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"atlas/internal/gateway"
	"atlas/internal/logging"
	"atlas/internal/prefs"
	"atlas/internal/services"
	"atlas/internal/workflow"
)

const modeLockedHint = "Ajan calisirken bolum degistirilemez; iptal edin veya bitmesini bekleyin."

type modeRequest struct {
	Mode string `json:"mode"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type voiceResponse struct {
	Text     string            `json:"text"`
	Snapshot workflow.Snapshot `json:"snapshot"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type themeResponse struct {
	Theme prefs.Theme `json:"theme"`
}

type alertsResponse struct {
	Alerts []workflow.Alert `json:"alerts"`
}

type galleryResponse struct {
	Gallery []workflow.GalleryEntry `json:"gallery"`
}

type tabRequest struct {
	Tab string `json:"tab"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type imgbbRequest struct {
	APIKey string `json:"api_key"`
}

type imgbbResponse struct {
	APIKey     string `json:"api_key"`
	Configured bool   `json:"configured"`
}

type logsResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

func (s *Server) snapshot(w http.ResponseWriter, status int) {
	s.writeJSON(w, status, s.session.Snapshot())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.snapshot(w, http.StatusOK)
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.session.Store().Alerts()
	if alerts == nil {
		alerts = []workflow.Alert{}
	}
	s.writeJSON(w, http.StatusOK, alertsResponse{Alerts: alerts})
}

func (s *Server) handleGallery(w http.ResponseWriter, _ *http.Request) {
	gallery := s.session.Snapshot().Gallery
	if gallery == nil {
		gallery = []workflow.GalleryEntry{}
	}
	s.writeJSON(w, http.StatusOK, galleryResponse{Gallery: gallery})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decode(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	mode, ok := workflow.ParseMode(req.Mode)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown mode "+strconv.Quote(req.Mode))
		return
	}
	if !s.session.Modes.RequestModeSwitch(mode) {
		s.writeJSON(w, http.StatusConflict, errorResponse{
			Error: "mode switch refused while the agent runs",
			Kind:  "busy",
			Hint:  modeLockedHint,
		})
		return
	}
	s.snapshot(w, http.StatusOK)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.session.Chat.SendMessage(r.Context(), req.Message); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.snapshot(w, http.StatusOK)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decode(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.session.Chat.Draw(r.Context(), req.Prompt); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.snapshot(w, http.StatusOK)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBody))
	if err != nil {
		s.writeServiceError(w, services.Wrap(services.ErrValidation, "panel", "voice", "recording too large or unreadable", err))
		return
	}
	text, err := s.session.Chat.Transcribe(r.Context(), audio)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, voiceResponse{Text: text, Snapshot: s.session.Snapshot()})
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid message index")
		return
	}
	audio, contentType, err := s.session.Chat.Speak(r.Context(), index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// handleSingle claims the studio, answers immediately and leaves the
// blocking generation to the session; progress arrives through snapshots.
func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Single.Launch(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.snapshot(w, http.StatusAccepted)
}

func (s *Server) handleCarousel(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, r, s.session.Carousel, workflow.Input{})
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var in workflow.Input
	if raw := strings.TrimSpace(r.URL.Query().Get("live")); raw != "" {
		live, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "live must be true or false")
			return
		}
		in.Live = live
	}
	s.startJob(w, r, s.session.Agent, in)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, r, s.session.Video, workflow.Input{})
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request, driver workflow.Driver, in workflow.Input) {
	if err := driver.Start(r.Context(), in); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.snapshot(w, http.StatusAccepted)
}

func (s *Server) handleAgentCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Agent.Cancel(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.snapshot(w, http.StatusAccepted)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Publisher.Publish(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.snapshot(w, http.StatusOK)
}

func (s *Server) handleReset(mode workflow.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := s.session.ResetMode(mode); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.snapshot(w, http.StatusOK)
	}
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		s.writeJSON(w, http.StatusOK, themeResponse{Theme: prefs.DefaultTheme})
		return
	}
	theme, err := s.prefs.Theme(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
}

// handleSetTheme stores the requested theme, or toggles it when none is given.
func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "preferences are not available")
		return
	}
	var req themeRequest
	if err := decode(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	var (
		theme prefs.Theme
		err   error
	)
	if strings.TrimSpace(req.Theme) == "" {
		theme, err = s.prefs.ToggleTheme(r.Context())
	} else {
		theme, err = s.prefs.SetTheme(r.Context(), req.Theme)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
}

func (s *Server) handleInstagramOpen(w http.ResponseWriter, r *http.Request) {
	s.session.Instagram.Open(r.Context())
	s.writeJSON(w, http.StatusOK, s.session.Snapshot().Instagram)
}

func (s *Server) handleInstagramClose(w http.ResponseWriter, _ *http.Request) {
	s.session.Instagram.Close()
	s.writeJSON(w, http.StatusOK, s.session.Snapshot().Instagram)
}

func (s *Server) handleInstagramTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decode(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.session.Instagram.SetAuthTab(req.Tab); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot().Instagram)
}

func (s *Server) handleGraphStatus(w http.ResponseWriter, r *http.Request) {
	s.session.Instagram.RefreshGraphStatus(r.Context())
	s.session.Instagram.RefreshTokenStatus(r.Context())
	s.writeJSON(w, http.StatusOK, s.session.Snapshot().Instagram)
}

func (s *Server) handleSaveGraph(w http.ResponseWriter, r *http.Request) {
	var cfg gateway.GraphConfig
	if err := decode(r, &cfg); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.session.Instagram.SaveGraphConfig(r.Context(), cfg); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot().Instagram)
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.session.Instagram.SaveCredentials(r.Context(), req.Username, req.Password); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot().Instagram)
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Instagram.ResetSession(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Snapshot().Instagram)
}

func (s *Server) handleImgBB(w http.ResponseWriter, r *http.Request) {
	s.session.Instagram.RefreshImgBB(r.Context())
	view := s.session.Snapshot().Instagram
	s.writeJSON(w, http.StatusOK, imgbbResponse{APIKey: view.ImgBBKey, Configured: view.ImgBBConfigured})
}

func (s *Server) handleSaveImgBB(w http.ResponseWriter, r *http.Request) {
	var req imgbbRequest
	if err := decode(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.session.Instagram.SaveImgBB(r.Context(), req.APIKey); err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := s.session.Snapshot().Instagram
	s.writeJSON(w, http.StatusOK, imgbbResponse{APIKey: view.ImgBBKey, Configured: view.ImgBBConfigured})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		s.writeJSON(w, http.StatusOK, logsResponse{Events: []logging.LogEvent{}})
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	component := strings.TrimSpace(query.Get("component"))
	jobKind := strings.TrimSpace(query.Get("job_kind"))

	var (
		events []logging.LogEvent
		next   uint64
	)
	if since == 0 && !follow {
		events, next = s.logs.Tail(limit)
	} else {
		var err error
		events, next, err = s.logs.Fetch(r.Context(), since, limit, follow)
		if err != nil && r.Context().Err() == nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	filtered := make([]logging.LogEvent, 0, len(events))
	for _, evt := range events {
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		if jobKind != "" && !strings.EqualFold(jobKind, evt.JobKind) {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, logsResponse{Events: filtered, Next: next})
}
