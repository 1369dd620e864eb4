// Package workflow delivers dispatch records to downstream automation.
// Notifications are fire-and-forget: they never block or fail a submission.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"cityguardian/metrics"
	"cityguardian/models"

	"github.com/apex/log"
)

// Notifier is a single downstream sink.
type Notifier interface {
	Notify(ctx context.Context, record models.DispatchRecord) error
	Name() string
}

// WebhookNotifier POSTs the record as JSON to an intake webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{}}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Notify(ctx context.Context, record models.DispatchRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Dispatcher fans a record out to every sink on detached goroutines.
type Dispatcher struct {
	sinks   []Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher; nil sinks are skipped.
func NewDispatcher(timeout time.Duration, sinks ...Notifier) *Dispatcher {
	d := &Dispatcher{timeout: timeout}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// NotifyAsync returns immediately. Each sink runs on its own context so the
// notification outlives the request that triggered it.
func (d *Dispatcher) NotifyAsync(record models.DispatchRecord) {
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Notifier) {
			defer d.wg.Done()
			d.notify(sink, record)
		}(sink)
	}
}

func (d *Dispatcher) notify(sink Notifier, record models.DispatchRecord) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := sink.Notify(ctx, record); err != nil {
		log.WithFields(log.Fields{
			"sink":      sink.Name(),
			"report_id": record.ID,
		}).WithError(err).Warn("Workflow notification failed")
		metrics.NotificationTotal.WithLabelValues(sink.Name(), metrics.OutcomeError).Inc()
		return
	}
	metrics.NotificationTotal.WithLabelValues(sink.Name(), metrics.OutcomeOK).Inc()
}

// Wait blocks until every notification started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
