package gateway

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/botgate/internal/dedup"
	"github.com/flemzord/botgate/internal/directory"
)

// fakeDirectory backs gateway tests without a database.
type fakeDirectory struct {
	tenants []directory.Tenant
}

var _ directory.Lister = (*fakeDirectory)(nil)

func (d *fakeDirectory) FindByWebhookKey(_ context.Context, key string) (*directory.Tenant, error) {
	for i, t := range d.tenants {
		if t.WebhookKey == key && t.Enabled {
			return &d.tenants[i], nil
		}
	}
	return nil, directory.ErrNotFound
}

func (d *fakeDirectory) Get(_ context.Context, id int64) (*directory.Tenant, error) {
	for i, t := range d.tenants {
		if t.ID == id && t.Enabled {
			return &d.tenants[i], nil
		}
	}
	return nil, directory.ErrNotFound
}

func (d *fakeDirectory) List(context.Context) ([]directory.Tenant, error) {
	return d.tenants, nil
}

// delivery records one sink invocation.
type delivery struct {
	tenant  directory.Tenant
	id      string
	payload []byte
}

// recordingSink captures deliveries on a channel; an optional delay
// simulates a slow processing unit.
type recordingSink struct {
	deliveries chan delivery
	delay      time.Duration
}

func newRecordingSink() *recordingSink {
	return &recordingSink{deliveries: make(chan delivery, 16)}
}

func (s *recordingSink) Deliver(_ context.Context, tenant *directory.Tenant, id string, payload []byte) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.deliveries <- delivery{tenant: *tenant, id: id, payload: payload}
}

// waitDelivery blocks until the sink records a delivery or the timeout fires.
func (s *recordingSink) waitDelivery(t *testing.T, timeout time.Duration) delivery {
	t.Helper()
	select {
	case d := <-s.deliveries:
		return d
	case <-time.After(timeout):
		t.Fatal("timed out waiting for delivery")
		return delivery{}
	}
}

// assertNoDelivery asserts the sink stays quiet for the given window.
func (s *recordingSink) assertNoDelivery(t *testing.T, window time.Duration) {
	t.Helper()
	select {
	case d := <-s.deliveries:
		t.Fatalf("unexpected delivery %q for tenant %q", d.id, d.tenant.Name)
	case <-time.After(window):
	}
}

func testTenants() []directory.Tenant {
	return []directory.Tenant{
		{
			ID:            1,
			Name:          "acme",
			Token:         "123456:acme-token",
			WebhookKey:    "wh-acme",
			WebhookSecret: "acme-hook-secret",
			Unit:          "echo",
			Enabled:       true,
		},
		{
			ID:         2,
			Name:       "open",
			Token:      "123457:open-token",
			WebhookKey: "wh-open",
			Unit:       "echo",
			Enabled:    true,
		},
		{
			ID:            3,
			Name:          "paused",
			Token:         "123458:paused-token",
			WebhookKey:    "wh-paused",
			WebhookSecret: "paused-hook-secret",
			Unit:          "echo",
			Enabled:       false,
		},
	}
}

// newTestGateway wires a gateway around the fakes and returns it with an
// httptest server mounted on its router.
func newTestGateway(t *testing.T, cfg Config, sink *recordingSink) (*Gateway, *httptest.Server) {
	t.Helper()

	dd := dedup.NewMemory(dedup.DefaultTTL)
	t.Cleanup(dd.Close)

	g := New(cfg, &fakeDirectory{tenants: testTenants()}, dd, sink, slog.New(slog.DiscardHandler), nil)
	g.baseCtx, g.cancel = context.WithCancel(context.Background())
	g.startedAt = time.Now()
	t.Cleanup(g.cancel)

	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return g, srv
}
