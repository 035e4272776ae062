package supervisor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"bakery-pos/internal/logger"
)

type mockHTTPServer struct {
	listenErr error
	stopCh    chan struct{}
	started   chan struct{}
	shutdowns atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopCh: make(chan struct{}), started: make(chan struct{}, 1)}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.started <- struct{}{}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(ctx context.Context) error {
	m.shutdowns.Add(1)
	close(m.stopCh)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newMockHTTPServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.shutdowns.Load() != 1 {
		t.Fatalf("shutdown called %d times", srv.shutdowns.Load())
	}
}

func TestHTTPServerServiceListenFailure(t *testing.T) {
	srv := newMockHTTPServer()
	srv.listenErr = errors.New("address already in use")
	svc := NewHTTPServerService(srv, 0)

	err := svc.Serve(context.Background())
	if err == nil || !strings.Contains(err.Error(), "address already in use") {
		t.Fatalf("Serve = %v", err)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

// flakyService fails its first run and then blocks until stopped
type flakyService struct {
	mu   sync.Mutex
	runs int
	up   chan struct{}
}

func (f *flakyService) Serve(ctx context.Context) error {
	f.mu.Lock()
	f.runs++
	first := f.runs == 1
	f.mu.Unlock()

	if first {
		return errors.New("broker went away")
	}
	f.up <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func (f *flakyService) String() string { return "flaky" }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTreeRestartsFailedService(t *testing.T) {
	var out syncBuffer
	log := logger.NewWithOptions("test", logger.Options{Output: &out})
	tree := NewTree("bakery-test", log, TreeConfig{FailureBackoff: 10 * time.Millisecond})

	svc := &flakyService{up: make(chan struct{}, 1)}
	tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-svc.up:
	case <-time.After(2 * time.Second):
		t.Fatal("service was not restarted")
	}
	cancel()
	<-errCh

	if !strings.Contains(out.String(), "supervisor_service_terminate") {
		t.Fatalf("termination not logged: %s", out.String())
	}
}

func TestEventAction(t *testing.T) {
	tests := []struct {
		in   suture.EventType
		want string
	}{
		{suture.EventTypeServicePanic, "service_panic"},
		{suture.EventTypeBackoff, "backoff"},
		{suture.EventTypeResume, "resume"},
	}
	for _, tt := range tests {
		if got := eventAction(tt.in); got != tt.want {
			t.Errorf("eventAction(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
