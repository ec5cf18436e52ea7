package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jenkmcp/jenkmcp/internal/creds"
)

func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := creds.NewStore("admin", "tok123", "")
	return New(srv.URL, store, srv.Client(), nil), srv
}

func TestFetchCrumbStoresPair(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crumbIssuer/api/json" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Basic ") {
			t.Errorf("crumb request missing basic auth, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"crumb":"abc123","crumbRequestField":"Jenkins-Crumb"}`))
	}))

	if err := s.FetchCrumb(context.Background()); err != nil {
		t.Fatalf("FetchCrumb: %v", err)
	}

	value, header, ok := s.Crumb()
	if !ok || value != "abc123" || header != "Jenkins-Crumb" {
		t.Errorf("crumb = (%q, %q, %v), want (abc123, Jenkins-Crumb, true)", value, header, ok)
	}

	headers := s.AuthHeaders()
	if headers["Jenkins-Crumb"] != "abc123" {
		t.Errorf("AuthHeaders missing crumb: %v", headers)
	}
}

func TestFetchCrumbNon2xxKeepsPriorCrumb(t *testing.T) {
	calls := 0
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"crumb":"first","crumbRequestField":"Jenkins-Crumb"}`))
			return
		}
		// CSRF protection disabled: crumb issuer 404s.
		http.NotFound(w, r)
	}))

	ctx := context.Background()
	if err := s.FetchCrumb(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.FetchCrumb(ctx); err != nil {
		t.Fatalf("non-2xx crumb fetch must not be a hard failure: %v", err)
	}

	value, _, ok := s.Crumb()
	if !ok || value != "first" {
		t.Errorf("prior crumb lost after failed refresh: (%q, %v)", value, ok)
	}
}

func TestAbsorbCookiesUpserts(t *testing.T) {
	s := New("http://example.invalid", creds.NewStore("", "", ""), http.DefaultClient, nil)

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Add("Set-Cookie", "JSESSIONID=one; Path=/; HttpOnly")
	resp.Header.Add("Set-Cookie", "sticky=lb1")
	s.AbsorbCookies(resp)

	resp2 := &http.Response{Header: http.Header{}}
	resp2.Header.Add("Set-Cookie", "JSESSIONID=two; Path=/")
	s.AbsorbCookies(resp2)

	got := s.AuthHeaders()["Cookie"]
	want := "JSESSIONID=two; sticky=lb1"
	if got != want {
		t.Errorf("Cookie header = %q, want %q", got, want)
	}
}

func TestAuthHeadersWithoutCredentials(t *testing.T) {
	s := New("http://example.invalid", creds.NewStore("", "", ""), http.DefaultClient, nil)
	headers := s.AuthHeaders()
	if _, ok := headers["Authorization"]; ok {
		t.Error("unconfigured store produced an Authorization header")
	}
	if _, ok := headers["Cookie"]; ok {
		t.Error("empty jar produced a Cookie header")
	}
}

func TestTestAuthentication(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/whoAmI/api/json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"admin","authenticated":true,"authorities":["authenticated"]}`))
	}))

	ok, err := s.TestAuthentication(context.Background())
	if err != nil {
		t.Fatalf("TestAuthentication: %v", err)
	}
	if !ok {
		t.Error("expected authenticated=true")
	}
}

func TestResetClearsState(t *testing.T) {
	s := New("http://example.invalid", creds.NewStore("", "", ""), http.DefaultClient, nil)

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Add("Set-Cookie", "a=1")
	s.AbsorbCookies(resp)
	s.mu.Lock()
	s.crumb, s.crumbHeader = "x", "Jenkins-Crumb"
	s.mu.Unlock()

	s.Reset()

	if _, _, ok := s.Crumb(); ok {
		t.Error("crumb survived Reset")
	}
	if _, ok := s.AuthHeaders()["Cookie"]; ok {
		t.Error("cookies survived Reset")
	}
}
