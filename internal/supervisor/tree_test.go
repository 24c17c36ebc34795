// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package supervisor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/placepulse/placepulse/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

// flakyService fails a fixed number of times, then runs until canceled.
type flakyService struct {
	failures int32
	runs     atomic.Int32
}

func (s *flakyService) Serve(ctx context.Context) error {
	run := s.runs.Add(1)
	if run <= s.failures {
		return errors.New("transient failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *flakyService) String() string { return "flaky" }

func TestTreeRestartsFailedService(t *testing.T) {
	t.Parallel()

	tree := NewTree(logging.NewSlogLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
	})

	svc := &flakyService{failures: 2}
	tree.AddIngestService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if svc.runs.Load() >= 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := svc.runs.Load(); got < 3 {
		t.Fatalf("service ran %d times, want at least 3 (two failures plus recovery)", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor tree did not stop after cancel")
	}
}

func TestTreeStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	tree := NewTree(logging.NewSlogLogger(), TreeConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("tree stopped with unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor tree did not stop after cancel")
	}
}

func TestHTTPServiceServesAndDrains(t *testing.T) {
	t.Parallel()

	// Reserve a free port, release it, and hand it to the service.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	svc := NewHTTPService(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	var resp *http.Response
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never became reachable: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("http service did not stop after cancel")
	}
}

func TestIngestServiceRebuildsRouterPerRun(t *testing.T) {
	t.Parallel()

	var builds atomic.Int32
	svc := NewIngestService(func() (*message.Router, error) {
		builds.Add(1)
		return message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	})

	for run := 0; run < 2; run++ {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Fatalf("run %d returned unexpected error: %v", run, err)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("run %d did not stop after cancel", run)
		}
	}

	if got := builds.Load(); got != 2 {
		t.Fatalf("router built %d times, want 2", got)
	}
}
