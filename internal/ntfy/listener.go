package ntfy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Event is one entry on the ntfy JSON stream.
type Event struct {
	ID       string   `json:"id"`
	Time     int64    `json:"time"`
	Event    string   `json:"event"`
	Topic    string   `json:"topic"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Tags     []string `json:"tags"`
	Priority int      `json:"priority"`
}

// Handler receives each cleaned inbound message. It runs synchronously on
// the listener goroutine; panics are recovered and logged.
type Handler func(message string, ev Event)

const (
	reconnectBase = time.Second
	reconnectCap  = 60 * time.Second
)

// Listener subscribes to a topic's JSON event stream and feeds message
// events to a handler, reconnecting with exponential backoff on failure.
type Listener struct {
	server     string
	topic      string
	handler    Handler
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewListener(server, topic string, handler Handler, log *zap.SugaredLogger) *Listener {
	return &Listener{
		server:  strings.TrimRight(server, "/"),
		topic:   topic,
		handler: handler,
		// No client timeout: the subscription is a long-lived stream kept
		// warm by relay keepalives.
		httpClient: &http.Client{},
		log:        log,
	}
}

// Run consumes the stream until ctx is cancelled. Each stream failure backs
// off exponentially (1s base, factor 2, 60s cap); a clean read loop resets
// the backoff to the base.
func (l *Listener) Run(ctx context.Context) {
	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		err := l.listen(ctx)
		if err == nil || ctx.Err() != nil {
			failures = 0
			if ctx.Err() != nil {
				return
			}
			l.log.Infow("stream closed, reconnecting", "topic", l.topic)
			if !sleepCtx(ctx, reconnectBase) {
				return
			}
			continue
		}

		failures++
		delay := backoffDelay(failures)
		l.log.Errorw("stream error", "topic", l.topic, "attempt", failures, "retry_in", delay, "err", err)
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

func backoffDelay(failures int) time.Duration {
	delay := reconnectBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= reconnectCap {
			return reconnectCap
		}
	}
	return delay
}

// listen reads one stream connection to completion. A nil return means the
// relay closed the stream cleanly.
func (l *Listener) listen(ctx context.Context) error {
	streamURL := fmt.Sprintf("%s/%s/json", l.server, l.topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream status %d", resp.StatusCode)
	}

	l.log.Infow("listening for commands", "topic", l.topic)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			l.log.Warnw("bad stream line", "err", err)
			continue
		}

		// Only message events carry commands; keepalives and the rest are
		// stream plumbing.
		if ev.Event != "message" {
			continue
		}

		message := CleanMessage(ev.Message)
		if message == "" {
			continue
		}

		l.dispatch(message, ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

// dispatch runs the handler, containing any panic so a bad command can
// never kill the listener.
func (l *Listener) dispatch(message string, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Errorw("command handler panicked", "message_id", ev.ID, "panic", r)
		}
	}()
	l.handler(message, ev)
}

// CleanMessage strips the encodings mobile shortcut apps wrap commands in:
// a leading '=', percent/plus URL encoding, and single-key JSON-object
// wrapping. Plain text passes through unchanged.
func CleanMessage(message string) string {
	message = strings.TrimSpace(message)

	if strings.HasPrefix(message, "=") {
		message = message[1:]
	}

	if strings.ContainsAny(message, "%+") {
		replaced := strings.ReplaceAll(message, "+", " ")
		if decoded, err := url.QueryUnescape(replaced); err == nil {
			message = decoded
		} else {
			message = replaced
		}
	}

	if strings.HasPrefix(message, "{") && strings.HasSuffix(message, "}") {
		var wrapped map[string]string
		if err := json.Unmarshal([]byte(message), &wrapped); err == nil && len(wrapped) == 1 {
			for _, v := range wrapped {
				message = v
			}
		}
	}

	return strings.TrimSpace(message)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
