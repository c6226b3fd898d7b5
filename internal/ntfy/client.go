// Package ntfy talks to an ntfy push relay: outbound publishes on one topic
// and an inbound command stream on another.
package ntfy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Action is a tappable button attached to a notification.
type Action struct {
	Action string
	Label  string
	URL    string
	Method string
}

// Message is one outbound notification.
type Message struct {
	Title    string
	Body     string
	Priority string // task priority: high/medium/low
	Tags     []string
	Click    string
	Attach   string
	Actions  []Action
}

// Client publishes messages to a single ntfy topic.
type Client struct {
	server     string
	topic      string
	priorities map[string]string
	httpClient *http.Client
}

var defaultPriorities = map[string]string{
	"high":   "urgent",
	"medium": "high",
	"low":    "default",
}

// NewClient creates a publisher for server/topic. priorities maps task
// priorities to ntfy priorities and may be nil for the defaults.
func NewClient(server, topic string, priorities map[string]string) *Client {
	if len(priorities) == 0 {
		priorities = defaultPriorities
	}
	return &Client{
		server:     strings.TrimRight(server, "/"),
		topic:      topic,
		priorities: priorities,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Publish POSTs the message to the topic and returns the relay's message id.
func (c *Client) Publish(ctx context.Context, msg Message) (string, error) {
	title, body := splitHeaderSafeTitle(msg.Title, msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s", c.server, c.topic), strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build publish request: %w", err)
	}

	priority, ok := c.priorities[msg.Priority]
	if !ok {
		priority = "default"
	}
	req.Header.Set("Priority", priority)
	if title != "" {
		req.Header.Set("Title", title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Click != "" {
		req.Header.Set("Click", msg.Click)
	}
	if msg.Attach != "" {
		req.Header.Set("Attach", msg.Attach)
	}
	if len(msg.Actions) > 0 {
		req.Header.Set("Actions", formatActions(msg.Actions))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("publish to %s: status %d", c.topic, resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode publish response: %w", err)
	}
	return result.ID, nil
}

// splitHeaderSafeTitle keeps the Title header inside the legacy single-byte
// charset HTTP headers allow. A title with characters beyond latin-1 is
// stripped to its ASCII subset for the header and the original title is
// prepended to the body so nothing is lost.
func splitHeaderSafeTitle(title, body string) (string, string) {
	if title == "" || isLatin1(title) {
		return title, body
	}

	var ascii strings.Builder
	for _, r := range title {
		if r < 128 {
			ascii.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(ascii.String())
	if clean == "" {
		clean = "Notification"
	}

	if body != "" {
		body = title + "\n\n" + body
	} else {
		body = title
	}
	return clean, body
}

func isLatin1(s string) bool {
	for _, r := range s {
		if r > 255 {
			return false
		}
	}
	return true
}

// formatActions renders the Actions header:
// "action=http, label=Done, url=...; action=view, label=Open, url=...".
func formatActions(actions []Action) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		fields := []string{
			"action=" + a.Action,
			"label=" + a.Label,
			"url=" + a.URL,
		}
		if a.Method != "" {
			fields = append(fields, "method="+a.Method)
		}
		parts = append(parts, strings.Join(fields, ", "))
	}
	return strings.Join(parts, "; ")
}
