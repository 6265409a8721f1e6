package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticTokens struct{ token string }

func (s staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, nil
}

func TestClientBuildsQueryAndAuthHeader(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"profiles":[{"id":"p1"}],"total":7}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), staticTokens{token: "tok123"})
	completed := true
	res, err := client.ListProfiles(context.Background(), ListRequest{
		Page:      2,
		Limit:     50,
		Search:    "ada",
		Role:      "STUDENT",
		Completed: &completed,
	})
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}

	if gotAuth != "Bearer tok123" {
		t.Errorf("auth header = %q", gotAuth)
	}
	want := "completed=true&limit=50&page=2&role=STUDENT&search=ada"
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
	if len(res.Profiles) != 1 || res.Profiles[0].ID != "p1" {
		t.Errorf("profiles = %+v", res.Profiles)
	}
	if res.Total != 7 {
		t.Errorf("total = %d, want 7", res.Total)
	}
}

func TestClientOmitsEmptyParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"profiles":[],"total":0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	if _, err := client.ListProfiles(context.Background(), ListRequest{Page: 1, Limit: 50}); err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if gotQuery != "limit=50&page=1" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestClientMapsServiceErrorToAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"staff role required"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	_, err := client.ListProfiles(context.Background(), ListRequest{Page: 1, Limit: 50})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "staff role required" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestClientNonJSONErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	_, err := client.ListProfiles(context.Background(), ListRequest{Page: 1, Limit: 50})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*APIError); ok {
		t.Fatal("plain upstream failures must not surface verbatim")
	}
}
