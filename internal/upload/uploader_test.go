package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reclink/internal/httputil"
)

// fakeHost stands in for both the server directory and the upload server.
type fakeHost struct {
	directory http.HandlerFunc
	transfer  http.HandlerFunc
	transfers atomic.Int32
}

func newFakeHost(t *testing.T, h *fakeHost) (*httptest.Server, *Uploader) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/servers", h.directory)
	mux.HandleFunc("/uploadFile", func(w http.ResponseWriter, r *http.Request) {
		h.transfers.Add(1)
		h.transfer(w, r)
	})
	ts := httptest.NewTLSServer(mux)
	t.Cleanup(ts.Close)

	u := New(Options{
		APIBase:         ts.URL,
		UploadURL:       ts.URL + "/uploadFile?server={server}",
		Client:          ts.Client(),
		LookupTimeout:   2 * time.Second,
		TransferTimeout: 2 * time.Second,
	})
	return ts, u
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

const okDirectory = `{"status":"ok","data":{"servers":[{"name":"store7","zone":"eu"},{"name":"store3","zone":"na"}]}}`

func TestUploadSuccess(t *testing.T) {
	var gotServer, gotFilename, gotToken, gotContent, gotContentType string
	h := &fakeHost{
		directory: jsonHandler(200, okDirectory),
		transfer: func(w http.ResponseWriter, r *http.Request) {
			gotServer = r.URL.Query().Get("server")
			gotContentType = r.Header.Get("Content-Type")
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
				return
			}
			f, hdr, err := r.FormFile("file")
			if err != nil {
				t.Errorf("FormFile: %v", err)
				return
			}
			data, _ := io.ReadAll(f)
			gotContent = string(data)
			gotFilename = hdr.Filename
			gotToken = r.FormValue("token")
			jsonHandler(200, `{"status":"ok","data":{"downloadPage":"https://gofile.io/d/AbC12x","code":"AbC12x"}}`)(w, r)
		},
	}
	_, u := newFakeHost(t, h)

	page, err := u.Upload(context.Background(), strings.NewReader("webm-bytes"), "recording-1080p.webm", "secret")
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if page != "https://gofile.io/d/AbC12x" {
		t.Errorf("page = %q", page)
	}
	if parsed, err := url.Parse(page); err != nil || !parsed.IsAbs() {
		t.Errorf("page %q is not an absolute URL", page)
	}
	if gotServer != "store7" {
		t.Errorf("server = %q, want first entry store7", gotServer)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data; boundary=") {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotFilename != "recording-1080p.webm" {
		t.Errorf("filename = %q", gotFilename)
	}
	if gotContent != "webm-bytes" {
		t.Errorf("content = %q", gotContent)
	}
	if gotToken != "secret" {
		t.Errorf("token = %q", gotToken)
	}
}

func TestUploadWithoutTokenOmitsField(t *testing.T) {
	hasToken := true
	h := &fakeHost{
		directory: jsonHandler(200, okDirectory),
		transfer: func(w http.ResponseWriter, r *http.Request) {
			r.ParseMultipartForm(1 << 20)
			_, hasToken = r.MultipartForm.Value["token"]
			jsonHandler(200, `{"status":"ok","data":{"downloadPage":"https://gofile.io/d/x"}}`)(w, r)
		},
	}
	_, u := newFakeHost(t, h)

	if _, err := u.Upload(context.Background(), strings.NewReader("x"), "a.webm", ""); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if hasToken {
		t.Error("token field should be omitted when no token is given")
	}
}

func TestUploadDirectoryFailures(t *testing.T) {
	tests := []struct {
		name       string
		directory  http.HandlerFunc
		wantKind   DirectoryFailure
		wantStatus int
	}{
		{"empty pool", jsonHandler(200, `{"status":"ok","data":{"servers":[]}}`), DirectoryEmptyPool, 0},
		{"missing data", jsonHandler(200, `{"status":"ok"}`), DirectoryEmptyPool, 0},
		{"non-ok status", jsonHandler(200, `{"status":"error-rateLimit"}`), DirectoryMalformedBody, 0},
		{"not json", jsonHandler(200, `<html>maintenance</html>`), DirectoryMalformedBody, 0},
		{"servers not a list", jsonHandler(200, `{"status":"ok","data":{"servers":"store1"}}`), DirectoryMalformedBody, 0},
		{"entry without name", jsonHandler(200, `{"status":"ok","data":{"servers":[{"zone":"eu"}]}}`), DirectoryMalformedEntry, 0},
		{"entry name not a string", jsonHandler(200, `{"status":"ok","data":{"servers":[{"name":7}]}}`), DirectoryMalformedEntry, 0},
		{"entry name injects path", jsonHandler(200, `{"status":"ok","data":{"servers":[{"name":"evil.com/x"}]}}`), DirectoryMalformedEntry, 0},
		{"http 503", jsonHandler(503, `{"status":"error"}`), DirectoryTransport, 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHost{
				directory: tt.directory,
				transfer:  jsonHandler(200, `{"status":"ok","data":{"downloadPage":"https://gofile.io/d/x"}}`),
			}
			_, u := newFakeHost(t, h)

			page, err := u.Upload(context.Background(), strings.NewReader("x"), "a.webm", "")
			if page != "" {
				t.Errorf("page = %q, want empty", page)
			}
			var dirErr *ServerDirectoryError
			if !errors.As(err, &dirErr) {
				t.Fatalf("error = %v, want ServerDirectoryError", err)
			}
			if dirErr.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", dirErr.Kind, tt.wantKind)
			}
			if dirErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", dirErr.StatusCode, tt.wantStatus)
			}
			if n := h.transfers.Load(); n != 0 {
				t.Errorf("transfer attempted %d times after directory failure", n)
			}
		})
	}
}

func TestUploadDirectoryUnreachable(t *testing.T) {
	ts := httptest.NewTLSServer(http.NotFoundHandler())
	client := ts.Client()
	base := ts.URL
	ts.Close()

	u := New(Options{APIBase: base, UploadURL: base + "/uploadFile?s={server}", Client: client})
	_, err := u.SelectServer(context.Background())

	var dirErr *ServerDirectoryError
	if !errors.As(err, &dirErr) || dirErr.Kind != DirectoryTransport {
		t.Fatalf("error = %v, want transport ServerDirectoryError", err)
	}
}

func TestUploadTransportErrors(t *testing.T) {
	tests := []struct {
		name       string
		transfer   http.HandlerFunc
		wantStatus int
		wantDetail string
	}{
		{"500 with status json", jsonHandler(500, `{"status":"error-internal"}`), 500, "error-internal"},
		{"500 with other json", jsonHandler(500, `{"message": "boom"}`), 500, `{"message":"boom"}`},
		{"502 with text", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}, 502, "bad gateway"},
		{"413 empty", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}, 413, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, u := newFakeHost(t, &fakeHost{directory: jsonHandler(200, okDirectory), transfer: tt.transfer})

			page, err := u.Upload(context.Background(), strings.NewReader("x"), "a.webm", "")
			if page != "" {
				t.Errorf("page = %q, want empty", page)
			}
			var tErr *TransportError
			if !errors.As(err, &tErr) {
				t.Fatalf("error = %v, want TransportError", err)
			}
			if tErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", tErr.StatusCode, tt.wantStatus)
			}
			if tErr.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", tErr.Detail, tt.wantDetail)
			}
		})
	}
}

func TestUploadTruncatedResponse(t *testing.T) {
	h := &fakeHost{
		directory: jsonHandler(200, okDirectory),
		transfer: func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.Header().Set("Content-Length", "500")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{"status":"ok"`)
		},
	}
	_, u := newFakeHost(t, h)

	_, err := u.Upload(context.Background(), strings.NewReader("x"), "a.webm", "")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if tErr.StatusCode != 0 {
		t.Errorf("status = %d, want 0 for an incomplete response", tErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "reading response") {
		t.Errorf("error %q does not carry the read failure", err)
	}
}

func TestTransportErrorMessage(t *testing.T) {
	err := &TransportError{StatusCode: 500, Detail: "error-internal", Err: io.ErrUnexpectedEOF}
	want := "upload failed with status 500 (error-internal): unexpected EOF"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUploadTransferTimeout(t *testing.T) {
	h := &fakeHost{
		directory: jsonHandler(200, okDirectory),
		transfer: func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		},
	}
	_, u := newFakeHost(t, h)
	u.transferTimeout = 100 * time.Millisecond

	_, err := u.Upload(context.Background(), strings.NewReader("x"), "a.webm", "")
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if tErr.StatusCode != 0 {
		t.Errorf("status = %d, want 0 for no response", tErr.StatusCode)
	}
	if !httputil.IsTimeout(err) {
		t.Errorf("expected a timeout, got %v", err)
	}
}

func TestUploadResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `ok`},
		{"non-ok status", `{"status":"error-quota","data":{"message":"quota exceeded"}}`},
		{"missing data", `{"status":"ok"}`},
		{"missing downloadPage", `{"status":"ok","data":{"code":"x"}}`},
		{"empty downloadPage", `{"status":"ok","data":{"downloadPage":""}}`},
		{"relative downloadPage", `{"status":"ok","data":{"downloadPage":"/d/x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, u := newFakeHost(t, &fakeHost{directory: jsonHandler(200, okDirectory), transfer: jsonHandler(200, tt.body)})

			_, err := u.Upload(context.Background(), strings.NewReader("x"), "a.webm", "")
			var rErr *ResponseError
			if !errors.As(err, &rErr) {
				t.Fatalf("error = %v, want ResponseError", err)
			}
		})
	}
}

func TestUploadSanitizesFilename(t *testing.T) {
	var got string
	h := &fakeHost{
		directory: jsonHandler(200, okDirectory),
		transfer: func(w http.ResponseWriter, r *http.Request) {
			r.ParseMultipartForm(1 << 20)
			_, hdr, _ := r.FormFile("file")
			if hdr != nil {
				got = hdr.Filename
			}
			jsonHandler(200, `{"status":"ok","data":{"downloadPage":"https://gofile.io/d/x"}}`)(w, r)
		},
	}
	_, u := newFakeHost(t, h)

	if _, err := u.Upload(context.Background(), strings.NewReader("x"), "../../etc/passwd", ""); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if got != "passwd" {
		t.Errorf("filename = %q, want passwd", got)
	}
}
