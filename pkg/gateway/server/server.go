package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vango-go/voicegate/pkg/agora"
	"github.com/vango-go/voicegate/pkg/convlog"
	"github.com/vango-go/voicegate/pkg/gemini"
	"github.com/vango-go/voicegate/pkg/gateway/config"
	"github.com/vango-go/voicegate/pkg/gateway/handlers"
	"github.com/vango-go/voicegate/pkg/gateway/lifecycle"
	"github.com/vango-go/voicegate/pkg/gateway/mw"
	"github.com/vango-go/voicegate/pkg/session"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	httpClient *http.Client
	lifecycle  *lifecycle.Lifecycle

	sessions *session.Manager
	provider *gemini.Provider
	convs    *convlog.Log
}

func New(cfg config.Config, logger *slog.Logger, store session.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	tokens := &agora.TokenIssuer{
		AppID:          cfg.AgoraAppID,
		AppCertificate: cfg.AgoraAppCertificate,
		TTL:            cfg.TokenTTL,
	}

	agoraOpts := []agora.Option{agora.WithHTTPClient(httpClient)}
	if cfg.AgoraBaseURL != "" {
		agoraOpts = append(agoraOpts, agora.WithBaseURL(cfg.AgoraBaseURL))
	}
	agents := agora.New(cfg.AgoraAppID, cfg.AgoraCustomerID, cfg.AgoraCustomerSecret, tokens, agora.AgentConfig{
		IdleTimeout:     time.Duration(cfg.AgentIdleTimeout) * time.Second,
		LLMURL:          cfg.BridgeURL,
		Model:           gemini.DefaultModel,
		Temperature:     gemini.DefaultTemperature,
		MaxTokens:       gemini.DefaultMaxTokens,
		MaxHistory:      10,
		GreetingMessage: cfg.GreetingMessage,
		FailureMessage:  cfg.FailureMessage,
		ASRVendor:       "ares",
		ASRLanguage:     cfg.ASRLanguage,
		TTSVendor:       cfg.TTSVendor,
		TTSKey:          cfg.TTSKey,
		TTSModelID:      cfg.TTSModelID,
		TTSVoiceID:      cfg.TTSVoiceID,
		TTSSampleRate:   24000,
		TTSSpeed:        1.0,
	}, agoraOpts...)

	geminiOpts := []gemini.Option{gemini.WithHTTPClient(httpClient)}
	if cfg.GeminiBaseURL != "" {
		geminiOpts = append(geminiOpts, gemini.WithBaseURL(cfg.GeminiBaseURL))
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		mux:        http.NewServeMux(),
		httpClient: httpClient,
		lifecycle:  &lifecycle.Lifecycle{},
		sessions:   session.NewManager(store, agents, tokens, logger),
		provider:   gemini.New(cfg.GeminiAPIKey, geminiOpts...),
		convs:      convlog.New(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg, Lifecycle: s.lifecycle})

	s.mux.Handle("POST /v1/voice/start", handlers.StartVoiceHandler{
		Config:   s.cfg,
		Sessions: s.sessions,
		Logger:   s.logger,
	})
	s.mux.Handle("POST /v1/voice/stop", handlers.StopVoiceHandler{
		Config:   s.cfg,
		Sessions: s.sessions,
		Logger:   s.logger,
	})
	s.mux.Handle("GET /v1/voice/sessions/{id}", handlers.SessionHandler{Sessions: s.sessions})
	s.mux.Handle("GET /v1/voice/agents/{id}", handlers.AgentStatusHandler{Sessions: s.sessions})

	s.mux.Handle("POST /v1/chat/completions", handlers.CompletionsHandler{
		Config:   s.cfg,
		Provider: s.provider,
		Logger:   s.logger,
	})

	s.mux.Handle("GET /v1/monitor/sessions/active", handlers.ActiveSessionsHandler{Sessions: s.sessions})
	logs := handlers.LogsHandler{Sessions: s.sessions, Log: s.convs}
	s.mux.Handle("GET /v1/monitor/sessions/{id}/logs", logs)
	s.mux.Handle("DELETE /v1/monitor/sessions/{id}/logs", logs)
	s.mux.Handle("GET /v1/monitor/sessions/{id}/feed", handlers.FeedHandler{
		Sessions:  s.sessions,
		Log:       s.convs,
		Logger:    s.logger,
		Lifecycle: s.lifecycle,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

func (s *Server) SetDraining(draining bool) {
	s.lifecycle.SetDraining(draining)
}
