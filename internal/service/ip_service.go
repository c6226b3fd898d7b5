package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/model"
	"github.com/ngrabbs/schedule-manager/internal/repository"
)

// IPMonitorService watches the machine's public IP and notifies on change.
type IPMonitorService struct {
	history    *repository.IPRepository
	notifier   *NotifierService
	services   []string
	httpClient *http.Client
	now        func() time.Time
	log        *zap.SugaredLogger
}

func NewIPMonitorService(
	history *repository.IPRepository,
	notifier *NotifierService,
	services []string,
	log *zap.SugaredLogger,
) *IPMonitorService {
	return &IPMonitorService{
		history:    history,
		notifier:   notifier,
		services:   services,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
		log:        log,
	}
}

// PublicIP fetches the current public address, trying each configured
// service in order until one answers with something address-shaped.
func (s *IPMonitorService) PublicIP(ctx context.Context) (string, error) {
	for _, serviceURL := range s.services {
		address, err := s.fetch(ctx, serviceURL)
		if err != nil {
			s.log.Debugw("ip service failed", "url", serviceURL, "err", err)
			continue
		}
		return address, nil
	}
	return "", fmt.Errorf("all ip services failed")
}

func (s *IPMonitorService) fetch(ctx context.Context, serviceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	address := strings.TrimSpace(string(raw))
	if address == "" || (!strings.Contains(address, ".") && !strings.Contains(address, ":")) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	return address, nil
}

// CheckAndNotify compares the current address with the most recent history
// entry, recording and announcing any change. Fetch failures and unchanged
// addresses are silent.
func (s *IPMonitorService) CheckAndNotify(ctx context.Context) {
	current, err := s.PublicIP(ctx)
	if err != nil {
		// Retry on the next tick.
		return
	}

	last, err := s.history.Latest(ctx)
	if err != nil {
		s.log.Errorw("load ip history", "err", err)
		return
	}

	switch {
	case last == nil:
		s.record(ctx, current)
		s.log.Infow("initial ip recorded", "ip", current)
		s.notifier.SendIPChange(ctx, current, "")
	case last.Address != current:
		s.record(ctx, current)
		s.log.Infow("ip changed", "old", last.Address, "new", current)
		s.notifier.SendIPChange(ctx, current, last.Address)
	}
}

func (s *IPMonitorService) record(ctx context.Context, address string) {
	rec := model.IPRecord{Address: address, DetectedAt: s.now()}
	if err := s.history.Append(ctx, &rec); err != nil {
		s.log.Errorw("append ip history", "err", err)
	}
}
