package botapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Params is the parameter bag for a Bot API method call. Values may be
// scalars, structures that are flattened to compact JSON on the wire
// (e.g. reply_markup), or — for the file-valued fields — a path to a
// readable local file that gets attached as a multipart binary part.
type Params map[string]any

// fileFields are the parameter names whose string values may refer to a
// local file to upload. Any other field is never treated as a file.
var fileFields = map[string]bool{
	"photo":      true,
	"video":      true,
	"audio":      true,
	"voice":      true,
	"video_note": true,
	"document":   true,
	"animation":  true,
	"thumbnail":  true,
	"sticker":    true,
}

// isURL reports whether s parses as an absolute URL. URL-ness is checked
// before any filesystem access: a remote URL is passed through as a plain
// string for the provider to fetch server-side, and attacker-influenced
// strings that merely look like paths never cause a filesystem probe.
func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// isLocalFile reports whether s names a readable regular file.
// Callers must check isURL first.
func isLocalFile(s string) bool {
	info, err := os.Stat(s)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(s)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// hasUploads reports whether any file-valued parameter refers to a local file,
// which forces the multipart encoding.
func (p Params) hasUploads() bool {
	for key, value := range p {
		if !fileFields[key] {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		if !isURL(s) && isLocalFile(s) {
			return true
		}
	}
	return false
}

// flatten converts a parameter value to its wire string. Scalars map
// directly; everything else is serialized to compact JSON because the Bot
// API does not support nested form or multipart fields.
func flatten(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.RawMessage:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("botapi: marshal parameter: %w", err)
		}
		return string(data), nil
	}
}

// encodeForm produces an application/x-www-form-urlencoded body. Used when
// no local file upload is present.
func (p Params) encodeForm() (io.Reader, string, error) {
	values := url.Values{}
	for key, value := range p {
		s, err := flatten(value)
		if err != nil {
			return nil, "", err
		}
		values.Set(key, s)
	}
	return bytes.NewBufferString(values.Encode()), "application/x-www-form-urlencoded", nil
}

// encodeMultipart produces a multipart/form-data body with local files
// attached as binary parts under their original filename. All non-file
// values are flattened exactly as in the form encoding.
func (p Params) encodeMultipart() (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range p {
		s, isString := value.(string)
		if isString && fileFields[key] && !isURL(s) && isLocalFile(s) {
			if err := attachFile(writer, key, s); err != nil {
				return nil, "", err
			}
			continue
		}

		flat, err := flatten(value)
		if err != nil {
			return nil, "", err
		}
		if err := writer.WriteField(key, flat); err != nil {
			return nil, "", fmt.Errorf("botapi: write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("botapi: close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// attachFile streams a local file into the multipart body as a binary part.
func attachFile(writer *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("botapi: open upload %s: %w", field, err)
	}
	defer func() { _ = f.Close() }()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("botapi: create file part %s: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("botapi: copy upload %s: %w", field, err)
	}
	return nil
}

// encode selects the wire encoding for the call: multipart if and only if
// a local file upload is present, form-encoded otherwise.
func (p Params) encode() (io.Reader, string, error) {
	if p.hasUploads() {
		return p.encodeMultipart()
	}
	return p.encodeForm()
}
