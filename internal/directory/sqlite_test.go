package directory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tenants.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleTenant(name, key string) *Tenant {
	return &Tenant{
		Name:          name,
		Token:         "12345:token-" + name,
		WebhookKey:    key,
		WebhookSecret: "secret-" + name,
		Unit:          "echo",
		Enabled:       true,
	}
}

func TestCreateAndFindByWebhookKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tenant := sampleTenant("alpha", "k-alpha")
	if err := store.Create(ctx, tenant); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if tenant.ID == 0 {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := store.FindByWebhookKey(ctx, "k-alpha")
	if err != nil {
		t.Fatalf("FindByWebhookKey() error: %v", err)
	}
	if got.Name != "alpha" || got.Token != tenant.Token || got.WebhookSecret != tenant.WebhookSecret {
		t.Errorf("unexpected tenant: %+v", got)
	}
	if !got.Enabled {
		t.Error("Enabled = false, want true")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not persisted")
	}
}

func TestDisabledTenantIsInvisible(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tenant := sampleTenant("beta", "k-beta")
	if err := store.Create(ctx, tenant); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.SetEnabled(ctx, "beta", false); err != nil {
		t.Fatalf("SetEnabled() error: %v", err)
	}

	if _, err := store.FindByWebhookKey(ctx, "k-beta"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByWebhookKey() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, tenant.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	// Admin lookups still see it.
	got, err := store.FindByName(ctx, "beta")
	if err != nil {
		t.Fatalf("FindByName() error: %v", err)
	}
	if got.Enabled {
		t.Error("Enabled = true, want false")
	}
}

func TestUnknownKeyReturnsNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.FindByWebhookKey(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByWebhookKey() error = %v, want ErrNotFound", err)
	}
}

func TestDuplicateWebhookKeyRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, sampleTenant("one", "shared-key")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Create(ctx, sampleTenant("two", "shared-key")); err == nil {
		t.Error("Create() with duplicate webhook_key succeeded, want error")
	}
}

func TestUpdateAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tenant := sampleTenant("gamma", "k-gamma")
	if err := store.Create(ctx, tenant); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	tenant.Unit = "support"
	tenant.WebhookSecret = "rotated"
	if err := store.Update(ctx, tenant); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	got, err := store.Get(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Unit != "support" || got.WebhookSecret != "rotated" {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := store.Create(ctx, sampleTenant("delta", "k-delta")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	tenants, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(tenants))
	}
	if tenants[0].Name != "delta" || tenants[1].Name != "gamma" {
		t.Errorf("List() not ordered by name: %s, %s", tenants[0].Name, tenants[1].Name)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, sampleTenant("omega", "k-omega")); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Delete(ctx, "omega"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := store.Delete(ctx, "omega"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
