package netx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type payload struct {
	Items []string `json:"items"`
}

func TestGetJSON(t *testing.T) {
	t.Run("success 200 OK", func(t *testing.T) {
		var gotAuth, gotMethod, gotAccept string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotAuth = r.Header.Get("Authorization")
			gotAccept = r.Header.Get("Accept")
			_, _ = w.Write([]byte(`{"items":["a","b"]}`))
		}))
		defer ts.Close()

		var out payload
		if err := GetJSON(context.Background(), ts.Client(), ts.URL+"/employees", "tok", &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodGet {
			t.Fatalf("method = %q, want GET", gotMethod)
		}
		if gotAuth != "Bearer tok" {
			t.Fatalf("Authorization = %q", gotAuth)
		}
		if gotAccept != "application/json" {
			t.Fatalf("Accept = %q", gotAccept)
		}
		if len(out.Items) != 2 || out.Items[1] != "b" {
			t.Fatalf("decoded = %+v", out)
		}
	})

	t.Run("non-200 -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("token expired"))
		}))
		defer ts.Close()

		err := GetJSON(context.Background(), nil, ts.URL, "", &payload{})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "request failed: 401") || !strings.Contains(err.Error(), "token expired") {
			t.Fatalf("error = %q", err.Error())
		}
	})

	t.Run("bad json -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{"))
		}))
		defer ts.Close()

		err := GetJSON(context.Background(), nil, ts.URL, "", &payload{})
		if err == nil || !strings.Contains(err.Error(), "decode response") {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("client timeout", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer ts.Close()

		c := &http.Client{Timeout: 20 * time.Millisecond}
		if err := GetJSON(context.Background(), c, ts.URL, "", &payload{}); err == nil {
			t.Fatal("expected timeout error")
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if err := GetJSON(context.Background(), nil, "://bad", "", &payload{}); err == nil {
			t.Fatal("expected error for bad URL")
		}
	})
}
