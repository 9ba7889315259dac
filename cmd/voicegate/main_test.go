package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/vango-go/voicegate/pkg/gateway/config"
	gatewayserver "github.com/vango-go/voicegate/pkg/gateway/server"
	"github.com/vango-go/voicegate/pkg/session"
)

func memStoreDep(_ context.Context, _ config.Config, _ *slog.Logger) (session.Store, func(), error) {
	return session.NewMemoryStore(), func() {}, nil
}

func TestRunMain_ReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, gateDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		openStore: memStoreDep,
		newGateway: func(cfg config.Config, logger *slog.Logger, store session.Store) *gatewayserver.Server {
			t.Fatalf("newGateway should not be called when config load fails")
			return nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if got := stderr.String(); got == "" {
		t.Fatalf("expected stderr output for startup error")
	}
}

func TestRunMain_ReturnsNonZeroWhenStoreOpenFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, gateDeps{
		loadConfig: func() (config.Config, error) {
			return testRunConfig(), nil
		},
		openStore: func(context.Context, config.Config, *slog.Logger) (session.Store, func(), error) {
			return nil, nil, errors.New("database unreachable")
		},
		newGateway: func(cfg config.Config, logger *slog.Logger, store session.Store) *gatewayserver.Server {
			t.Fatalf("newGateway should not be called when store open fails")
			return nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
}

func testRunConfig() config.Config {
	return config.Config{
		Addr:                "127.0.0.1:0",
		AuthMode:            config.AuthModeDisabled,
		APIKeys:             map[string]struct{}{},
		AgoraAppID:          "app",
		AgoraAppCertificate: "cert",
		AgoraCustomerID:     "cust",
		AgoraCustomerSecret: "secret",
		GeminiAPIKey:        "key",
		TokenTTL:            time.Hour,
		AgentIdleTimeout:    300,
		MaxBodyBytes:        1 << 20,
		ReadHeaderTimeout:   2 * time.Second,
		ReadTimeout:         3 * time.Second,
		HandlerTimeout:      time.Minute,
		ShutdownGracePeriod: time.Second,
	}
}

func TestRunGate_ShutsDownOnSignal(t *testing.T) {
	t.Parallel()

	var sigCh chan<- os.Signal
	ready := make(chan struct{})

	deps := gateDeps{
		loadConfig: func() (config.Config, error) { return testRunConfig(), nil },
		openStore:  memStoreDep,
		newGateway: gatewayserver.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			sigCh = c
			close(ready)
		},
		signalStop: func(c chan<- os.Signal) {},
	}

	done := make(chan error, 1)
	go func() {
		done <- runGate(context.Background(), slog.New(slog.DiscardHandler), deps)
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not install signal handler")
	}
	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runGate returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down after signal")
	}
}

func TestBuildHTTPServer_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       3 * time.Second,
	}

	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v, want %v", srv.ReadHeaderTimeout, cfg.ReadHeaderTimeout)
	}
	if srv.ReadTimeout != cfg.ReadTimeout {
		t.Fatalf("ReadTimeout=%v, want %v", srv.ReadTimeout, cfg.ReadTimeout)
	}
}
