package botapi

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormEncodingFlattensStructures(t *testing.T) {
	var captured *http.Request
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		body, _ = io.ReadAll(r.Body)
		writeEnvelope(t, w, http.StatusOK, Response{OK: true, Result: json.RawMessage(`true`)})
	}))
	defer srv.Close()

	markup := map[string]any{
		"inline_keyboard": [][]map[string]string{
			{{"text": "yes", "callback_data": "y"}},
		},
	}
	resp := testClient(t, srv.URL).Call(context.Background(), "TOKEN", "sendMessage", Params{
		"chat_id":      int64(42),
		"text":         "pick one",
		"reply_markup": markup,
	})
	if !resp.OK {
		t.Fatalf("Call() not ok: %d %s", resp.ErrorCode, resp.Description)
	}

	if ct := captured.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Fatalf("Content-Type = %q, want form encoding", ct)
	}

	values, err := parseForm(string(body))
	if err != nil {
		t.Fatalf("parse form body: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(values["reply_markup"]), &decoded); err != nil {
		t.Fatalf("reply_markup is not flattened JSON: %v", err)
	}
	if _, ok := decoded["inline_keyboard"]; !ok {
		t.Error("flattened reply_markup lost inline_keyboard")
	}
}

func TestMultipartEncodingWithLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-fake"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	var contentType string
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		writeEnvelope(t, w, http.StatusOK, Response{OK: true, Result: json.RawMessage(`true`)})
	}))
	defer srv.Close()

	resp := testClient(t, srv.URL).Call(context.Background(), "TOKEN", "sendDocument", Params{
		"chat_id":      int64(42),
		"document":     path,
		"caption":      "monthly report",
		"reply_markup": map[string]any{"remove_keyboard": true},
	})
	if !resp.OK {
		t.Fatalf("Call() not ok: %d %s", resp.ErrorCode, resp.Description)
	}

	mediaType, mtParams, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("Content-Type = %q, want multipart/form-data", contentType)
	}

	reader := multipart.NewReader(strings.NewReader(string(body)), mtParams["boundary"])
	parts := map[string]string{}
	filenames := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		data, _ := io.ReadAll(part)
		parts[part.FormName()] = string(data)
		filenames[part.FormName()] = part.FileName()
	}

	if parts["document"] != "%PDF-fake" {
		t.Errorf("document part = %q, want file contents", parts["document"])
	}
	if filenames["document"] != "report.pdf" {
		t.Errorf("document filename = %q, want %q", filenames["document"], "report.pdf")
	}
	if parts["caption"] != "monthly report" {
		t.Errorf("caption part = %q", parts["caption"])
	}
	var markup map[string]any
	if err := json.Unmarshal([]byte(parts["reply_markup"]), &markup); err != nil {
		t.Errorf("reply_markup part is not flattened JSON: %v", err)
	}
}

func TestRemoteURLIsNotUploaded(t *testing.T) {
	var contentType string
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		writeEnvelope(t, w, http.StatusOK, Response{OK: true, Result: json.RawMessage(`true`)})
	}))
	defer srv.Close()

	fileURL := "https://example.com/cat.png"
	resp := testClient(t, srv.URL).Call(context.Background(), "TOKEN", "sendPhoto", Params{
		"chat_id": int64(42),
		"photo":   fileURL,
	})
	if !resp.OK {
		t.Fatalf("Call() not ok: %d %s", resp.ErrorCode, resp.Description)
	}

	if contentType != "application/x-www-form-urlencoded" {
		t.Fatalf("Content-Type = %q, want form encoding for a remote URL", contentType)
	}
	values, err := parseForm(string(body))
	if err != nil {
		t.Fatalf("parse form body: %v", err)
	}
	if values["photo"] != fileURL {
		t.Errorf("photo = %q, want URL passed through", values["photo"])
	}
}

func TestNonFileFieldNeverProbesFilesystem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	// "text" is not a file field; a path-looking value stays a plain string.
	p := Params{"chat_id": int64(1), "text": path}
	if p.hasUploads() {
		t.Error("hasUploads() = true for a path in a non-file field")
	}
}

func TestIsURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a.png", true},
		{"http://example.com", true},
		{"/tmp/file.png", false},
		{"file.png", false},
		{"AgACAgIAAxkBAAIB", false}, // file_id
		{"", false},
	}
	for _, tc := range cases {
		if got := isURL(tc.in); got != tc.want {
			t.Errorf("isURL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFlatten(t *testing.T) {
	cases := []struct {
		name  string
		in    any
		want  string
	}{
		{"string", "hi", "hi"},
		{"int64", int64(42), "42"},
		{"bool", true, "true"},
		{"float", 1.5, "1.5"},
		{"slice", []string{"a", "b"}, `["a","b"]`},
		{"map", map[string]int{"n": 1}, `{"n":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := flatten(tc.in)
			if err != nil {
				t.Fatalf("flatten() error: %v", err)
			}
			if got != tc.want {
				t.Errorf("flatten(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// parseForm decodes a URL-encoded body into a flat map.
func parseForm(body string) (map[string]string, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for key := range values {
		out[key] = values.Get(key)
	}
	return out, nil
}
