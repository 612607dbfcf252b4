// Package probe checks the connectivity of each account's integration
// endpoint. Every target is probed concurrently under its own timeout and
// the outcome of each lands in a Report; failures are logged, never returned.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/xdash/internal/types"
)

// Status is the outcome of one probe.
type Status string

const (
	StatusOK      Status = "ok"
	StatusDown    Status = "down"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// DefaultTimeout bounds a single probe when none is configured.
const DefaultTimeout = 5 * time.Second

// maxBody caps how much of a ping response is read.
const maxBody = 64 << 10

// Result is the probe outcome for one account.
type Result struct {
	AccountID string        `json:"account_id"`
	Name      string        `json:"name"`
	URL       string        `json:"url,omitempty"`
	Status    Status        `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	Latency   time.Duration `json:"latency"`
}

// Report aggregates one probe run, in account order.
type Report struct {
	CheckedAt time.Time `json:"checked_at"`
	Results   []Result  `json:"results"`
}

// Connected reports whether any endpoint answered ok.
func (r Report) Connected() bool {
	for _, res := range r.Results {
		if res.Status == StatusOK {
			return true
		}
	}
	return false
}

// Counts tallies results per status.
func (r Report) Counts() map[Status]int {
	out := make(map[Status]int)
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

type pingResponse struct {
	Status string `json:"status"`
}

// Prober runs connectivity checks.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a prober. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client:  &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		timeout: timeout,
	}
}

// Close releases idle connections.
func (p *Prober) Close() {
	p.client.CloseIdleConnections()
}

// Check probes every account with an API URL. Accounts without one are
// reported as skipped. Cancelling ctx cancels in-flight probes.
func (p *Prober) Check(ctx context.Context, accounts []types.Account) Report {
	report := Report{
		CheckedAt: time.Now(),
		Results:   make([]Result, len(accounts)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, acc := range accounts {
		report.Results[i] = Result{AccountID: acc.ID, Name: acc.Name, URL: acc.APIURL, Status: StatusSkipped}
		if acc.APIURL == "" {
			continue
		}
		g.Go(func() error {
			res := p.ping(gctx, acc)
			mu.Lock()
			report.Results[i] = res
			mu.Unlock()
			if res.Status != StatusOK {
				log.Printf("[probe] %s (%s): %s %s", acc.ID, acc.APIURL, res.Status, res.Detail)
			}
			// One failing target must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	counts := report.Counts()
	log.Printf("[probe] checked %d accounts: %d ok, %d down, %d timeout, %d error, %d skipped",
		len(accounts), counts[StatusOK], counts[StatusDown], counts[StatusTimeout], counts[StatusError], counts[StatusSkipped])
	return report
}

func (p *Prober) ping(ctx context.Context, acc types.Account) (res Result) {
	res = Result{AccountID: acc.ID, Name: acc.Name, URL: acc.APIURL}
	start := time.Now()
	defer func() { res.Latency = time.Since(start) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	target, err := pingURL(acc.APIURL)
	if err != nil {
		res.Status, res.Detail = StatusError, err.Error()
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		res.Status, res.Detail = StatusError, err.Error()
		return res
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			res.Status, res.Detail = StatusTimeout, fmt.Sprintf("no answer within %s", p.timeout)
		} else {
			res.Status, res.Detail = StatusError, err.Error()
		}
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			res.Status, res.Detail = StatusTimeout, fmt.Sprintf("no answer within %s", p.timeout)
		} else {
			res.Status, res.Detail = StatusError, err.Error()
		}
		return res
	}
	if resp.StatusCode != http.StatusOK {
		res.Status, res.Detail = StatusDown, fmt.Sprintf("http %d", resp.StatusCode)
		return res
	}

	var pr pingResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		res.Status, res.Detail = StatusError, fmt.Sprintf("bad ping body: %v", err)
		return res
	}
	if pr.Status != "ok" {
		res.Status, res.Detail = StatusDown, fmt.Sprintf("status %q", pr.Status)
		return res
	}
	res.Status = StatusOK
	return res
}

// pingURL appends action=ping to the endpoint, keeping any existing query.
func pingURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("action", "ping")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
