package service_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/ntfy"
	"github.com/ngrabbs/schedule-manager/internal/repository"
	"github.com/ngrabbs/schedule-manager/internal/service"
)

// ipStub serves a configurable address, optionally failing.
type ipStub struct {
	mu      sync.Mutex
	address string
	fail    bool
}

func (s *ipStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, s.address+"\n")
	})
}

func (s *ipStub) set(address string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = address
	s.fail = fail
}

func newIPFixture(t *testing.T, services []string) (*service.IPMonitorService, *repository.IPRepository, *relayStub) {
	t.Helper()
	db := newTestDB(t)
	history := repository.NewIPRepository(db)

	relay := &relayStub{}
	relaySrv := httptest.NewServer(relay.handler())
	t.Cleanup(relaySrv.Close)
	log := zap.NewNop().Sugar()
	notifier := service.NewNotifierService(ntfy.NewClient(relaySrv.URL, "alerts", nil), "", log)

	return service.NewIPMonitorService(history, notifier, services, log), history, relay
}

func TestPublicIPFallsBack(t *testing.T) {
	first := &ipStub{}
	first.set("", true)
	second := &ipStub{}
	second.set("203.0.113.7", false)

	srv1 := httptest.NewServer(first.handler())
	t.Cleanup(srv1.Close)
	srv2 := httptest.NewServer(second.handler())
	t.Cleanup(srv2.Close)

	monitor, _, _ := newIPFixture(t, []string{srv1.URL, srv2.URL})
	got, err := monitor.PublicIP(context.Background())
	if err != nil {
		t.Fatalf("public ip: %v", err)
	}
	if got != "203.0.113.7" {
		t.Errorf("address = %q, want 203.0.113.7", got)
	}
}

func TestPublicIPRejectsGarbage(t *testing.T) {
	stub := &ipStub{}
	stub.set("not an address", false)
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	monitor, _, _ := newIPFixture(t, []string{srv.URL})
	if _, err := monitor.PublicIP(context.Background()); err == nil {
		t.Fatal("expected error for a non-address body")
	}
}

func TestCheckAndNotify(t *testing.T) {
	ctx := context.Background()
	stub := &ipStub{}
	stub.set("203.0.113.7", false)
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	monitor, history, relay := newIPFixture(t, []string{srv.URL})

	// First run records and announces the initial address.
	monitor.CheckAndNotify(ctx)
	latest, err := history.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Address != "203.0.113.7" {
		t.Fatalf("latest = %+v, want the initial address", latest)
	}
	if sent := relay.sent(); len(sent) != 1 || !strings.Contains(sent[0], "recorded") {
		t.Fatalf("initial announcement = %v", sent)
	}

	// Unchanged address stays silent.
	monitor.CheckAndNotify(ctx)
	if len(relay.sent()) != 1 {
		t.Error("unchanged address was announced")
	}

	// A change records and announces old and new.
	stub.set("198.51.100.4", false)
	monitor.CheckAndNotify(ctx)
	latest, err = history.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Address != "198.51.100.4" {
		t.Fatalf("latest = %+v, want the new address", latest)
	}
	sent := relay.sent()
	if len(sent) != 2 {
		t.Fatalf("relay received %d messages, want 2", len(sent))
	}
	if !strings.Contains(sent[1], "203.0.113.7") || !strings.Contains(sent[1], "198.51.100.4") {
		t.Errorf("change announcement = %q", sent[1])
	}

	// Fetch failure is silent and leaves history alone.
	stub.set("", true)
	monitor.CheckAndNotify(ctx)
	if len(relay.sent()) != 2 {
		t.Error("fetch failure produced an announcement")
	}
}
