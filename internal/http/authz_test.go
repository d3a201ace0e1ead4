package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"cellarbook/internal/http/server"
)

func TestPagesRequireLogin(t *testing.T) {
	app, _ := newApp(t, server.Limits{})

	for _, path := range []string{"/", "/customers", "/wines", "/orders", "/invoices", "/export/wines"} {
		resp := get(t, app, path, "")
		if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
			t.Fatalf("%s: want redirect to /login, got %d %q", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
	if resp := get(t, app, "/customers", "sid-unknown"); resp.StatusCode != http.StatusFound {
		t.Fatalf("unknown session: want 302, got %d", resp.StatusCode)
	}
}

func TestAdminPagesNeedAdminRole(t *testing.T) {
	app, db := newApp(t, server.Limits{})

	if resp := get(t, app, "/admin/users", session(t, db, "u-cave")); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("shop user: want 403, got %d", resp.StatusCode)
	}

	resp := get(t, app, "/admin/users", session(t, db, "u-admin"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin: want 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body(t, resp), "sommelier@cellarbook.test") {
		t.Fatal("user list is missing a seeded account")
	}
}

func TestAdminDeletesUserAndTheirSessions(t *testing.T) {
	app, db := newApp(t, server.Limits{})
	admin := session(t, db, "u-admin")
	victim := session(t, db, "u-somm")
	csrf := csrfToken(t, app, admin)

	resp := postForm(t, app, "/admin/users/u-somm/delete", admin, csrf, url.Values{})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("delete: want 302, got %d", resp.StatusCode)
	}
	if resp := get(t, app, "/", victim); resp.StatusCode != http.StatusFound {
		t.Fatalf("deleted user still signed in: %d", resp.StatusCode)
	}

	resp = postForm(t, app, "/admin/users/u-admin/delete", admin, csrf, url.Values{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("self delete: want 400, got %d", resp.StatusCode)
	}
}

func TestRecordsAreScopedToOwner(t *testing.T) {
	app, db := newApp(t, server.Limits{})
	somm := session(t, db, "u-somm")

	for _, path := range []string{"/customers/c-martin", "/wines/w-barolo"} {
		if resp := get(t, app, path, somm); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s as another owner: want 404, got %d", path, resp.StatusCode)
		}
	}

	resp := get(t, app, "/wines", somm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wines: %d", resp.StatusCode)
	}
	if strings.Contains(body(t, resp), "Barolo") {
		t.Fatal("another shop's wine leaked into the list")
	}
}
