package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"cellarbook/internal/http/server"
)

func apiToken(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp := apiCall(t, app, http.MethodPost, "/api/v1/token", "", map[string]string{
		"email": email, "password": seedPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token for %s: %d", email, resp.StatusCode)
	}
	var out struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	decode(t, resp, &out)
	if out.Token == "" || out.TokenType != "Bearer" {
		t.Fatalf("unexpected token response: %+v", out)
	}
	return out.Token
}

type apiOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  string `json:"total"`
	Lines  []struct {
		WineID   string `json:"wine_id"`
		Quantity int    `json:"quantity"`
		Reserved bool   `json:"reserved"`
	} `json:"lines"`
}

func TestAPIRequiresBearerToken(t *testing.T) {
	app, _ := newApp(t, server.Limits{})

	for _, token := range []string{"", "not-a-jwt"} {
		resp := apiCall(t, app, http.MethodGet, "/api/v1/orders", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: want 401, got %d", token, resp.StatusCode)
		}
	}
}

func TestAPITokenRejectsBadCredentials(t *testing.T) {
	app, _ := newApp(t, server.Limits{})

	resp := apiCall(t, app, http.MethodPost, "/api/v1/token", "", map[string]string{
		"email": "cave@cellarbook.test", "password": "Wr0ngPass!",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestAPIOrderLifecycle(t *testing.T) {
	app, _ := newApp(t, server.Limits{})
	token := apiToken(t, app, "cave@cellarbook.test")

	resp := apiCall(t, app, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"customer_id": "c-dupont",
		"lines":       []map[string]any{{"wine_id": "w-chablis", "quantity": 3}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: want 201, got %d: %s", resp.StatusCode, body(t, resp))
	}
	var o apiOrder
	decode(t, resp, &o)
	if o.Status != "PENDING" || o.Total != "97.5" || len(o.Lines) != 1 || !o.Lines[0].Reserved {
		t.Fatalf("unexpected order: %+v", o)
	}

	resp = apiCall(t, app, http.MethodPost, "/api/v1/orders/"+o.ID+"/advance", token, map[string]string{"from": "PENDING"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance: want 200, got %d", resp.StatusCode)
	}
	var adv struct {
		Order apiOrder `json:"order"`
	}
	decode(t, resp, &adv)
	if adv.Order.Status != "CONFIRMED" {
		t.Fatalf("status after advance = %s", adv.Order.Status)
	}

	resp = apiCall(t, app, http.MethodPost, "/api/v1/orders/"+o.ID+"/advance", token, map[string]string{"from": "PENDING"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale advance: want 409, got %d", resp.StatusCode)
	}

	resp = apiCall(t, app, http.MethodPost, "/api/v1/orders/"+o.ID+"/cancel", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: want 200, got %d", resp.StatusCode)
	}

	resp = apiCall(t, app, http.MethodGet, "/api/v1/wines/w-chablis/availability", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("availability: %d", resp.StatusCode)
	}
	var avail struct {
		Stock int `json:"stock"`
	}
	decode(t, resp, &avail)
	if avail.Stock != 24 {
		t.Fatalf("stock after cancel = %d, want 24", avail.Stock)
	}
}

func TestAPIAcceptsNumericAndStringDiscounts(t *testing.T) {
	app, _ := newApp(t, server.Limits{})
	token := apiToken(t, app, "cave@cellarbook.test")

	for _, disc := range []any{10, "10", 10.0} {
		resp := apiCall(t, app, http.MethodPost, "/api/v1/orders", token, map[string]any{
			"customer_id": "c-martin",
			"lines":       []map[string]any{{"wine_id": "w-chablis", "quantity": 1, "discount": disc}},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("discount %#v: want 201, got %d: %s", disc, resp.StatusCode, body(t, resp))
		}
		var o apiOrder
		decode(t, resp, &o)
		if o.Total != "29.25" {
			t.Fatalf("discount %#v: total = %s, want 29.25", disc, o.Total)
		}
	}

	resp := apiCall(t, app, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"customer_id": "c-martin",
		"lines":       []map[string]any{{"wine_id": "w-chablis", "quantity": 1, "discount": true}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("boolean discount: want 400, got %d", resp.StatusCode)
	}
}

func TestAPIStockShortage(t *testing.T) {
	app, _ := newApp(t, server.Limits{})
	token := apiToken(t, app, "cave@cellarbook.test")

	resp := apiCall(t, app, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"customer_id": "c-martin",
		"lines":       []map[string]any{{"wine_id": "w-champagne", "quantity": 5}},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("want 409, got %d", resp.StatusCode)
	}
	var out struct {
		Shortages []struct {
			WineID    string `json:"wine_id"`
			Requested int    `json:"requested"`
			Available int    `json:"available"`
		} `json:"shortages"`
	}
	decode(t, resp, &out)
	if len(out.Shortages) != 1 || out.Shortages[0].WineID != "w-champagne" ||
		out.Shortages[0].Requested != 5 || out.Shortages[0].Available != 3 {
		t.Fatalf("unexpected shortages: %+v", out.Shortages)
	}
}

func TestAPIValidationErrorNamesField(t *testing.T) {
	app, _ := newApp(t, server.Limits{})
	token := apiToken(t, app, "cave@cellarbook.test")

	resp := apiCall(t, app, http.MethodPost, "/api/v1/orders", token, map[string]any{
		"customer_id": "c-martin",
		"lines":       []map[string]any{{"wine_id": "w-barolo", "quantity": -2}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
	var out struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	decode(t, resp, &out)
	if out.Field != "quantity" || out.Error == "" {
		t.Fatalf("unexpected error body: %+v", out)
	}
}

func TestAPIScopesOrdersToTokenOwner(t *testing.T) {
	app, _ := newApp(t, server.Limits{})
	cave := apiToken(t, app, "cave@cellarbook.test")
	somm := apiToken(t, app, "sommelier@cellarbook.test")

	resp := apiCall(t, app, http.MethodPost, "/api/v1/orders", cave, map[string]any{
		"customer_id": "c-martin",
		"lines":       []map[string]any{{"wine_id": "w-barolo", "quantity": 1}},
	})
	var o apiOrder
	decode(t, resp, &o)

	if resp := apiCall(t, app, http.MethodGet, "/api/v1/orders/"+o.ID, somm, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("other owner: want 404, got %d", resp.StatusCode)
	}
	if resp := apiCall(t, app, http.MethodPost, "/api/v1/orders/"+o.ID+"/advance", somm, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("other owner advance: want 404, got %d", resp.StatusCode)
	}
	if resp := apiCall(t, app, http.MethodGet, "/api/v1/orders/"+o.ID, cave, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("owner: want 200, got %d", resp.StatusCode)
	}
}

func TestAPIDashboard(t *testing.T) {
	app, _ := newApp(t, server.Limits{})
	token := apiToken(t, app, "cave@cellarbook.test")

	resp := apiCall(t, app, http.MethodGet, "/api/v1/dashboard", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: %d", resp.StatusCode)
	}
	var d struct {
		Totals struct {
			Customers int `json:"customers"`
			Wines     int `json:"wines"`
			Bottles   int `json:"bottles"`
		} `json:"totals"`
	}
	decode(t, resp, &d)
	if d.Totals.Customers != 2 || d.Totals.Wines != 5 || d.Totals.Bottles != 79 {
		t.Fatalf("unexpected totals: %+v", d.Totals)
	}
}

func TestAPIUnknownRouteIsJSON404(t *testing.T) {
	app, _ := newApp(t, server.Limits{})
	token := apiToken(t, app, "cave@cellarbook.test")

	resp := apiCall(t, app, http.MethodGet, "/api/v1/nope", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}
