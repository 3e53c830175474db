package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestResolveIdentity(t *testing.T) {
	t.Run("existing token is kept", func(t *testing.T) {
		token := uuid.NewString()
		got, isNew := ResolveIdentity(token)
		if got != token || isNew {
			t.Fatalf("ResolveIdentity(%q) = (%q, %v), want same token, not new", token, got, isNew)
		}
	})

	t.Run("missing token mints a new id", func(t *testing.T) {
		got, isNew := ResolveIdentity("")
		if !isNew {
			t.Fatal("empty token should report is_new")
		}
		if _, err := uuid.Parse(got); err != nil {
			t.Fatalf("minted id %q is not a UUID: %v", got, err)
		}
	})

	t.Run("garbage token is replaced", func(t *testing.T) {
		got, isNew := ResolveIdentity("not-a-uuid")
		if !isNew {
			t.Fatal("garbage token should report is_new")
		}
		if got == "not-a-uuid" {
			t.Fatal("garbage token was kept")
		}
	})

	t.Run("two minted ids differ", func(t *testing.T) {
		a, _ := ResolveIdentity("")
		b, _ := ResolveIdentity("")
		if a == b {
			t.Fatalf("minted ids collide: %q", a)
		}
	})
}

func TestIdentityCookieRoundTrip(t *testing.T) {
	server, _, _ := newTestServer(t, false, nil)
	router := server.NewRouter()

	// First visit sets the identity cookie.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", w.Code)
	}

	var identity *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == identityCookieName {
			identity = cookie
		}
	}
	if identity == nil {
		t.Fatal("first visit did not set the identity cookie")
	}
	if !identity.HttpOnly {
		t.Fatal("identity cookie must be HttpOnly")
	}
	if identity.MaxAge != identityCookieMaxAge {
		t.Fatalf("identity cookie max-age = %d, want %d", identity.MaxAge, identityCookieMaxAge)
	}
	if _, err := uuid.Parse(identity.Value); err != nil {
		t.Fatalf("cookie value %q is not a UUID: %v", identity.Value, err)
	}

	// Returning with the cookie must not mint a replacement.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(identity)
	router.ServeHTTP(w, req)
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == identityCookieName && cookie.Value != identity.Value {
			t.Fatalf("returning visit replaced identity %q with %q", identity.Value, cookie.Value)
		}
	}
	if !strings.Contains(w.Body.String(), "free decodes left today") {
		t.Fatalf("page did not render usage line: %s", w.Body.String()[:200])
	}
}
