package handlers_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"
	"testing"

	"cellarbook/internal/http/server"
)

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuf) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	ReqID  string         `json:"req_id"`
	Fields map[string]any `json:"fields"`
}

// captureLogs redirects the standard logger for the duration of the test.
func captureLogs(t *testing.T) func() []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	old, flags := log.Writer(), log.Flags()
	log.SetOutput(buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(old)
		log.SetFlags(flags)
	})
	return func() []logEntry {
		var out []logEntry
		sc := bufio.NewScanner(strings.NewReader(buf.String()))
		for sc.Scan() {
			var e logEntry
			if json.Unmarshal(sc.Bytes(), &e) == nil && e.Action != "" {
				out = append(out, e)
			}
		}
		return out
	}
}

func find(entries []logEntry, action string) *logEntry {
	for i := range entries {
		if entries[i].Action == action {
			return &entries[i]
		}
	}
	return nil
}

func TestAuditLogForOrderWorkflow(t *testing.T) {
	app, db := newApp(t, server.Limits{})
	entries := captureLogs(t)
	sid := session(t, db, "u-cave")
	csrf := csrfToken(t, app, sid)

	resp := postForm(t, app, "/orders", sid, csrf, url.Values{
		"customer_id": {"c-martin"}, "wine_id": {"w-barolo"}, "quantity": {"1"},
	})
	orderPath := resp.Header.Get("Location")
	postForm(t, app, orderPath+"/advance", sid, csrf, url.Values{})

	created := find(entries(), "orders.create")
	if created == nil {
		t.Fatal("orders.create not logged")
	}
	if created.Level != "audit" || created.UserID != "u-cave" || created.ReqID == "" {
		t.Fatalf("unexpected entry: %+v", created)
	}
	if created.Fields["total"] != "58.00" {
		t.Fatalf("total field = %v", created.Fields["total"])
	}
	adv := find(entries(), "orders.advance")
	if adv == nil || adv.Fields["status"] != "CONFIRMED" {
		t.Fatalf("orders.advance entry: %+v", adv)
	}
}

func TestSecurityLogForFailedLoginAndDeniedAdmin(t *testing.T) {
	app, db := newApp(t, server.Limits{})
	entries := captureLogs(t)
	csrf := csrfToken(t, app, "")

	postForm(t, app, "/login", "", csrf, url.Values{"email": {"cave@cellarbook.test"}, "password": {"Wr0ngPass!"}})
	get(t, app, "/admin/users", session(t, db, "u-cave"))

	fail := find(entries(), "auth.login.fail")
	if fail == nil || fail.Level != "warn" || fail.Fields["email"] != "cave@cellarbook.test" {
		t.Fatalf("auth.login.fail entry: %+v", fail)
	}
	for _, e := range entries() {
		if _, ok := e.Fields["password"]; ok {
			t.Fatal("password leaked into logs")
		}
	}
	if find(entries(), "access.denied.admin") == nil {
		t.Fatal("access.denied.admin not logged")
	}
}

func TestValidationFailuresAreLogged(t *testing.T) {
	app, db := newApp(t, server.Limits{})
	entries := captureLogs(t)
	sid := session(t, db, "u-cave")
	csrf := csrfToken(t, app, sid)

	postForm(t, app, "/customers", sid, csrf, url.Values{"name": {""}})

	e := find(entries(), "validation.fail")
	if e == nil || e.Fields["action"] != "customers.create" {
		t.Fatalf("validation.fail entry: %+v", e)
	}
}
