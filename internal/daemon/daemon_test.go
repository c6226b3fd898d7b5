package daemon

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/config"
	"github.com/ngrabbs/schedule-manager/internal/ntfy"
	"github.com/ngrabbs/schedule-manager/internal/repository"
)

func TestWithinWorkHours(t *testing.T) {
	d := &Daemon{cfg: config.Config{
		Notifications: config.NotificationsConfig{
			UpcomingSummaryWorkHours: []string{"09:00", "17:00"},
		},
	}}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"weekday inside window", time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC), true},
		{"weekday window start", time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC), true},
		{"weekday window end", time.Date(2024, 5, 6, 17, 0, 0, 0, time.UTC), true},
		{"weekday before window", time.Date(2024, 5, 6, 8, 59, 0, 0, time.UTC), false},
		{"weekday after window", time.Date(2024, 5, 6, 17, 1, 0, 0, time.UTC), false},
		{"saturday", time.Date(2024, 5, 11, 10, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.withinWorkHours(tt.now); got != tt.want {
				t.Errorf("withinWorkHours(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

// Inbound commands are throttled before they reach the agent, so a message
// flood cannot stack agent subprocesses.
func TestOnCommandThrottlesBeforeAgent(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		io.WriteString(w, `{"id":"relay-1"}`)
	}))
	defer srv.Close()

	cfg := config.Config{
		Ntfy:          config.NtfyConfig{Server: srv.URL, Topic: "tasks", CommandTopic: "commands"},
		Schedule:      config.ScheduleConfig{Timezone: "UTC"},
		Notifications: config.NotificationsConfig{ReminderMinutesBefore: []int{15}},
		Commands:      config.CommandsConfig{Enabled: true, RateLimitSeconds: 60},
		Agent:         config.AgentConfig{Enabled: true, Binary: "echo", AgentName: "helper", CommandTimeoutSeconds: 5},
	}
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	d, err := New(cfg, db, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}

	d.onCommand("help", ntfy.Event{})
	d.onCommand("help", ntfy.Event{})

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("got %d responses, want 2: %q", len(bodies), bodies)
	}
	if !strings.Contains(bodies[0], "--agent=helper") {
		t.Errorf("first command did not reach the agent: %q", bodies[0])
	}
	if !strings.Contains(bodies[1], "wait a moment") {
		t.Errorf("second command was not throttled: %q", bodies[1])
	}
	if strings.Contains(bodies[1], "--agent=") {
		t.Errorf("throttled command still reached the agent: %q", bodies[1])
	}
}

func TestWithinWorkHoursBadWindow(t *testing.T) {
	// A malformed or missing window falls open rather than silencing the
	// summary entirely.
	weekday := time.Date(2024, 5, 6, 3, 0, 0, 0, time.UTC)
	for _, window := range [][]string{nil, {"09:00"}, {"late", "17:00"}} {
		d := &Daemon{cfg: config.Config{
			Notifications: config.NotificationsConfig{UpcomingSummaryWorkHours: window},
		}}
		if !d.withinWorkHours(weekday) {
			t.Errorf("window %v closed on a weekday", window)
		}
	}
}
