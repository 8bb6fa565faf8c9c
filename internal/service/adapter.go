package service

import (
	"context"

	"github.com/unipost/unipost-api/internal/models"
	"github.com/unipost/unipost-api/internal/transfer"
)

// Credentials is the resolved, already-decrypted credential tuple for one
// user on one network. Adapters treat it as read-only; token refresh happens
// elsewhere, before the publish core is entered.
type Credentials struct {
	AccountID    string // provider-side account/page id, or Bluesky handle
	AccessToken  string
	AccessSecret string // OAuth 1.0a secret (X) or app password (Bluesky)
}

type PublishResult struct {
	ExternalID string
	Permalink  string
}

// NetworkAdapter translates a canonical post+variant into one network's
// publish protocol. Adapters never write local state; the orchestrator
// persists outcomes.
type NetworkAdapter interface {
	Network() string
	Publish(ctx context.Context, creds Credentials, post *models.Post, variant *models.Variant, medias []*models.Media) (*PublishResult, error)
}

// MetricsFetcher retrieves a user's remote engagement data in bulk.
type MetricsFetcher interface {
	Network() string
	FetchRemoteMetrics(ctx context.Context, creds Credentials) ([]transfer.RemoteMetric, error)
}

// AdapterRegistry dispatches by network enum so no layer grows per-network
// if-chains.
type AdapterRegistry struct {
	adapters map[string]NetworkAdapter
}

func NewAdapterRegistry(adapters ...NetworkAdapter) *AdapterRegistry {
	m := make(map[string]NetworkAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Network()] = a
	}
	return &AdapterRegistry{adapters: m}
}

func (r *AdapterRegistry) Get(network string) (NetworkAdapter, bool) {
	a, ok := r.adapters[network]
	return a, ok
}
