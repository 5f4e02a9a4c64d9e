package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// DefaultProbeInterval is how often the prober re-checks reachability.
const DefaultProbeInterval = 15 * time.Second

// Prober drives Monitor transitions from a periodic reachability check
// against the gateway's health endpoint. It is the Go stand-in for the
// platform online/offline events a browser kiosk receives for free.
type Prober struct {
	monitor  *Monitor
	url      string
	interval time.Duration
	http     *http.Client
}

// NewProber creates a prober that HEADs url every interval and feeds the
// result into the monitor.
func NewProber(monitor *Monitor, url string, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Prober{
		monitor:  monitor,
		url:      url,
		interval: interval,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Run probes until the context is cancelled. An immediate probe runs at
// startup so the monitor's initial value reflects reality before the
// first tick.
func (p *Prober) Run(ctx context.Context) error {
	p.monitor.Set(p.probe(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("connectivity prober stopping")
			return ctx.Err()
		case <-ticker.C:
			p.monitor.Set(p.probe(ctx))
		}
	}
}

// probe reports whether the health endpoint is currently reachable.
// Any HTTP response counts as reachable; only transport failures do not.
func (p *Prober) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
