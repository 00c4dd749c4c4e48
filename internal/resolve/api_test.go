package resolve

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reclink/internal/media"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *ContentAPI {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/getContent", handler)
	_, client := newProvider(t, mux)
	return NewContentAPI("https://api.gofile.io", "tok", client, time.Second, zerolog.Nop())
}

func apiBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestContentAPIResolve(t *testing.T) {
	var gotID, gotToken string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotID = r.URL.Query().Get("contentId")
		gotToken = r.URL.Query().Get("token")
		apiBody(`{"status":"ok","data":{"contents":{
			"f-zzz":{"link":"https://store1.gofile.io/download/web/zzz/first.webm","mimetype":"video/webm","name":"first.webm"},
			"f-aaa":{"link":"https://store1.gofile.io/download/web/aaa/second.png","mimetype":"image/png","name":"second.png"}
		}}}`)(w, r)
	})

	res, err := api.Resolve(context.Background(), "https://gofile.io/d/AbC12x")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if gotID != "AbC12x" || gotToken != "tok" {
		t.Errorf("query contentId=%q token=%q", gotID, gotToken)
	}
	if res.MediaURL != "https://store1.gofile.io/download/web/zzz/first.webm" {
		t.Errorf("MediaURL = %q, want the first listed file", res.MediaURL)
	}
	if res.MIME != "video/webm" || res.MediaType != media.Video {
		t.Errorf("got mime %q type %v", res.MIME, res.MediaType)
	}
}

func TestContentAPIMimeFields(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantMIME string
		wantType media.MediaType
	}{
		{"lowercase field", `{"link":"https://h/a","mimetype":"audio/ogg"}`, "audio/ogg", media.Audio},
		{"camelcase field", `{"link":"https://h/a","mimeType":"image/jpeg"}`, "image/jpeg", media.Image},
		{"neither field", `{"link":"https://h/a"}`, "application/octet-stream", media.Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, apiBody(`{"status":"ok","data":{"contents":{"f1":`+tt.file+`}}}`))
			res, err := api.Resolve(context.Background(), "https://gofile.io/d/x")
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if res.MIME != tt.wantMIME || res.MediaType != tt.wantType {
				t.Errorf("got (%q, %v), want (%q, %v)", res.MIME, res.MediaType, tt.wantMIME, tt.wantType)
			}
		})
	}
}

func TestContentAPIFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   Kind
		wantReason Reason
	}{
		{"not found status", apiBody(`{"status":"error-notFound"}`), KindNotFound, ReasonNone},
		{"password required", apiBody(`{"status":"error-passwordRequired"}`), KindAccessDenied, ReasonPassworded},
		{"permission denied", apiBody(`{"status":"error-permissionDenied"}`), KindAccessDenied, ReasonNone},
		{"rate limit status", apiBody(`{"status":"error-rateLimit"}`), KindUpstream, ReasonRateLimited},
		{"unknown status", apiBody(`{"status":"error-wrongToken"}`), KindUpstream, ReasonNone},
		{"empty contents", apiBody(`{"status":"ok","data":{"contents":{}}}`), KindNotFound, ReasonEmptyFolder},
		{"null contents", apiBody(`{"status":"ok","data":{"contents":null}}`), KindNotFound, ReasonEmptyFolder},
		{"no data", apiBody(`{"status":"ok"}`), KindNotFound, ReasonEmptyFolder},
		{"missing link", apiBody(`{"status":"ok","data":{"contents":{"f1":{"name":"a.webm"}}}}`), KindParse, ReasonNone},
		{"contents not an object", apiBody(`{"status":"ok","data":{"contents":[1,2]}}`), KindParse, ReasonNone},
		{"not json", apiBody(`<html></html>`), KindParse, ReasonNone},
		{"http 401", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, KindAccessDenied, ReasonNone},
		{"http 404", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, KindNotFound, ReasonNone},
		{"http 429", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, KindUpstream, ReasonRateLimited},
		{"http 500", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, KindUpstream, ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, tt.handler)
			res, err := api.Resolve(context.Background(), "https://gofile.io/d/x")
			if res != nil {
				t.Errorf("res = %+v, want nil", res)
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("kind = %v, want %v (err: %v)", KindOf(err), tt.wantKind, err)
			}
			if ReasonOf(err) != tt.wantReason {
				t.Errorf("reason = %q, want %q", ReasonOf(err), tt.wantReason)
			}
		})
	}
}

func TestContentAPITimeout(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	})
	api.timeout = 100 * time.Millisecond

	_, err := api.Resolve(context.Background(), "https://gofile.io/d/x")
	if KindOf(err) != KindNetwork {
		t.Errorf("kind = %v, want network (err: %v)", KindOf(err), err)
	}
}

func TestOrderedContentsKeepsProviderOrder(t *testing.T) {
	var c orderedContents
	data := `{"c":{"link":"3"},"a":{"link":"1"},"b":{"link":"2"}}`
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c) != 3 {
		t.Fatalf("len = %d, want 3", len(c))
	}
	for i, want := range []string{"c", "a", "b"} {
		if c[i].ID != want {
			t.Errorf("entry %d = %q, want %q", i, c[i].ID, want)
		}
	}
}
