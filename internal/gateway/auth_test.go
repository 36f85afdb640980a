package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedRouter(t *testing.T) *httptest.Server {
	t.Helper()
	sink := newRecordingSink()
	_, srv := newTestGateway(t, Config{
		Auth: AuthConfig{
			BearerToken: "admin-bearer-token",
			BasicUser:   "ops",
			BasicPass:   "ops-password",
		},
	}, sink)
	return srv
}

func TestAdminRequiresAuth(t *testing.T) {
	srv := authedRouter(t)

	for _, path := range []string{"/status", "/api/tenants"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without auth = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestAdminBearerAuth(t *testing.T) {
	srv := authedRouter(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer admin-bearer-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAdminWrongBearerRejected(t *testing.T) {
	srv := authedRouter(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/status", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminBasicAuth(t *testing.T) {
	srv := authedRouter(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/tenants", nil)
	req.SetBasicAuth("ops", "ops-password")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/tenants: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAdminNotMountedWithoutAuthConfig(t *testing.T) {
	sink := newRecordingSink()
	_, srv := newTestGateway(t, Config{}, sink)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when admin surface is unmounted", resp.StatusCode)
	}
}

func TestAuthConfigIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer", AuthConfig{BearerToken: "t"}, true},
		{"basic", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic user only", AuthConfig{BasicUser: "u"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}
