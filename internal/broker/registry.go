package broker

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sort"

	"github.com/nightwatch-obs/alert-radar/internal/models"
)

// Registry maps broker names to their adapters so callers can fetch
// alerts without broker-specific knowledge.
type Registry struct {
	brokers map[string]Broker
	log     *slog.Logger
}

// NewRegistry builds a registry over the given adapters, keyed by
// their Name().
func NewRegistry(log *slog.Logger, brokers ...Broker) *Registry {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := make(map[string]Broker, len(brokers))
	for _, b := range brokers {
		m[b.Name()] = b
	}
	return &Registry{brokers: m, log: log}
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Broker, error) {
	b, ok := r.brokers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBroker, name)
	}
	return b, nil
}

// Names lists registered broker names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.brokers))
	for name := range r.brokers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListAlerts runs query, fetch and normalize for the named broker and
// yields the resulting alerts. The sequence is lazy (the remote call
// happens on first pull), finite, and single-use; re-fetching requires
// a new call. A lookup, validation, or fetch failure ends the sequence
// after being yielded once; a record that fails normalization is
// yielded as a per-item error and the rest of the batch still flows.
func (r *Registry) ListAlerts(ctx context.Context, name string, q Query) iter.Seq2[models.Alert, error] {
	consumed := false
	return func(yield func(models.Alert, error) bool) {
		if consumed {
			return
		}
		consumed = true

		b, err := r.Get(name)
		if err != nil {
			yield(models.Alert{}, err)
			return
		}

		req, err := b.BuildRequest(ctx, q)
		if err != nil {
			yield(models.Alert{}, err)
			return
		}

		raws, err := b.Fetch(req)
		if err != nil {
			yield(models.Alert{}, err)
			return
		}
		r.log.Debug("fetched raw alerts", slog.String("broker", name), slog.Int("count", len(raws)))

		for _, raw := range raws {
			alert, err := b.Normalize(raw)
			if err != nil {
				if !yield(models.Alert{}, err) {
					return
				}
				continue
			}
			if !yield(alert, nil) {
				return
			}
		}
	}
}
