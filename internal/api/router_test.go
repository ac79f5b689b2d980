package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/isdelr/papertrade-be/internal/api/handlers"
	"github.com/isdelr/papertrade-be/internal/auth"
	"github.com/isdelr/papertrade-be/internal/database"
	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/isdelr/papertrade-be/internal/quote"
	"github.com/isdelr/papertrade-be/internal/services"
	"github.com/isdelr/papertrade-be/internal/websocket"
	"github.com/shopspring/decimal"
)

type testApp struct {
	srv    *httptest.Server
	quotes *quote.StaticProvider
	db     *database.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	quotes := quote.NewStaticProvider(map[string]decimal.Decimal{"ACME": decimal.NewFromInt(100)})
	events := services.NewEventService(db)
	users := services.NewUserService(db, events, decimal.NewFromInt(10000))
	sessions := services.NewSessionService(db, auth.NewSigner("test-secret"), time.Hour)
	ledger := services.NewLedgerService(db, quotes, events, hub)

	router, err := NewRouter(Options{}, hub, ledger, users, sessions, events, db)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, quotes: quotes, db: db}
}

// newBrowser returns a client that keeps cookies and does not follow redirects.
func (a *testApp) newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type response struct {
	code     int
	body     string
	location string
	header   http.Header
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path string, form url.Values) response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	res, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return response{code: res.StatusCode, body: string(b), location: res.Header.Get("Location"), header: res.Header}
}

func (a *testApp) register(t *testing.T, c *http.Client, username string) {
	t.Helper()
	res := a.do(t, c, http.MethodPost, "/register", url.Values{
		"username": {username}, "password": {"pw"}, "confirmation": {"pw"},
	})
	if res.code != http.StatusSeeOther || res.location != "/" {
		t.Fatalf("register: status %d location %q body %s", res.code, res.location, res.body)
	}
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	a := newTestApp(t)
	c := a.newBrowser(t)
	for _, path := range []string{"/", "/buy", "/sell", "/quote", "/history", "/activity", "/statement", "/ws"} {
		res := a.do(t, c, http.MethodGet, path, nil)
		if res.code != http.StatusSeeOther || res.location != "/login" {
			t.Errorf("GET %s: status %d location %q, want 303 to /login", path, res.code, res.location)
		}
	}
}

func TestTradingFlow(t *testing.T) {
	a := newTestApp(t)
	c := a.newBrowser(t)
	a.register(t, c, "alice")

	res := a.do(t, c, http.MethodGet, "/", nil)
	if res.code != http.StatusOK || !strings.Contains(res.body, "$10,000.00") || !strings.Contains(res.body, "alice") {
		t.Fatalf("portfolio: status %d body %s", res.code, res.body)
	}

	res = a.do(t, c, http.MethodPost, "/buy", url.Values{"symbol": {"acme"}, "shares": {"10"}})
	if res.code != http.StatusSeeOther || res.location != "/" {
		t.Fatalf("buy: status %d body %s", res.code, res.body)
	}
	res = a.do(t, c, http.MethodPost, "/sell", url.Values{"symbol": {"ACME"}, "shares": {"4"}})
	if res.code != http.StatusSeeOther {
		t.Fatalf("sell: status %d body %s", res.code, res.body)
	}

	res = a.do(t, c, http.MethodGet, "/", nil)
	for _, want := range []string{"ACME", "$600.00", "$9,400.00", "$10,000.00"} {
		if !strings.Contains(res.body, want) {
			t.Errorf("portfolio missing %q", want)
		}
	}

	res = a.do(t, c, http.MethodGet, "/sell", nil)
	if !strings.Contains(res.body, `<option value="ACME">ACME</option>`) {
		t.Errorf("sell form does not offer ACME:\n%s", res.body)
	}

	res = a.do(t, c, http.MethodGet, "/history", nil)
	if res.code != http.StatusOK || !strings.Contains(res.body, "buy") || !strings.Contains(res.body, "sell") || !strings.Contains(res.body, "$400.00") {
		t.Errorf("history: status %d body %s", res.code, res.body)
	}

	res = a.do(t, c, http.MethodPost, "/quote", url.Values{"symbol": {"acme"}})
	if res.code != http.StatusOK || !strings.Contains(res.body, "(ACME) costs $100.00") {
		t.Errorf("quote: status %d body %s", res.code, res.body)
	}

	res = a.do(t, c, http.MethodGet, "/statement", nil)
	if res.code != http.StatusOK || !strings.Contains(res.body, "<table>") {
		t.Errorf("statement: status %d body %s", res.code, res.body)
	}
	res = a.do(t, c, http.MethodGet, "/statement?format=md", nil)
	if !strings.HasPrefix(res.header.Get("Content-Type"), "text/markdown") || !strings.Contains(res.body, "# Statement for alice") {
		t.Errorf("markdown statement: %q %s", res.header.Get("Content-Type"), res.body)
	}

	res = a.do(t, c, http.MethodGet, "/activity", nil)
	if !strings.Contains(res.body, "Bought 10 ACME at 100.00.") {
		t.Errorf("activity missing trade:\n%s", res.body)
	}
}

func TestApologies(t *testing.T) {
	a := newTestApp(t)
	c := a.newBrowser(t)
	a.register(t, c, "alice")
	a.quotes.SetFailure("DOWN", quote.ErrUnavailable)

	tests := []struct {
		name     string
		method   string
		path     string
		form     url.Values
		wantCode int
		wantMsg  string
	}{
		{"missing symbol", http.MethodPost, "/buy", url.Values{"shares": {"1"}}, 400, "must provide symbol"},
		{"fractional shares", http.MethodPost, "/buy", url.Values{"symbol": {"ACME"}, "shares": {"1.5"}}, 400, "shares must be a positive whole number"},
		{"unknown symbol", http.MethodPost, "/buy", url.Values{"symbol": {"NOPE"}, "shares": {"1"}}, 400, "symbol not found"},
		{"cost equals cash", http.MethodPost, "/buy", url.Values{"symbol": {"ACME"}, "shares": {"100"}}, 400, "insufficient funds"},
		{"quote service down", http.MethodPost, "/buy", url.Values{"symbol": {"DOWN"}, "shares": {"1"}}, 503, "quote service unavailable"},
		{"oversell", http.MethodPost, "/sell", url.Values{"symbol": {"ACME"}, "shares": {"1"}}, 400, "insufficient shares"},
		{"quote unknown", http.MethodPost, "/quote", url.Values{"symbol": {"NOPE"}}, 400, "symbol not found"},
		{"not found", http.MethodGet, "/nowhere", nil, 404, "not found"},
		{"method not allowed", http.MethodPost, "/logout", url.Values{}, 405, "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.do(t, c, tt.method, tt.path, tt.form)
			if res.code != tt.wantCode {
				t.Fatalf("status = %d, want %d\n%s", res.code, tt.wantCode, res.body)
			}
			if !strings.Contains(res.body, tt.wantMsg) {
				t.Errorf("body missing %q:\n%s", tt.wantMsg, res.body)
			}
		})
	}
}

func TestLoginLogout(t *testing.T) {
	a := newTestApp(t)
	c := a.newBrowser(t)
	a.register(t, c, "alice")

	res := a.do(t, c, http.MethodGet, "/logout", nil)
	if res.code != http.StatusSeeOther {
		t.Fatalf("logout: status %d", res.code)
	}
	if res = a.do(t, c, http.MethodGet, "/", nil); res.location != "/login" {
		t.Fatalf("still logged in after logout: %d %q", res.code, res.location)
	}

	res = a.do(t, c, http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	if res.code != http.StatusBadRequest || !strings.Contains(res.body, "invalid username and/or password") {
		t.Errorf("bad login: status %d body %s", res.code, res.body)
	}
	if res = a.do(t, c, http.MethodGet, "/", nil); res.location != "/login" {
		t.Error("failed login issued a session")
	}

	res = a.do(t, c, http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"pw"}})
	if res.code != http.StatusSeeOther || res.location != "/" {
		t.Fatalf("login: status %d body %s", res.code, res.body)
	}
	if res = a.do(t, c, http.MethodGet, "/", nil); res.code != http.StatusOK {
		t.Errorf("portfolio after login: status %d", res.code)
	}

	// Visiting the login page forgets the session.
	a.do(t, c, http.MethodGet, "/login", nil)
	if res = a.do(t, c, http.MethodGet, "/", nil); res.location != "/login" {
		t.Error("session survived a visit to /login")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	a := newTestApp(t)
	a.register(t, a.newBrowser(t), "alice")

	res := a.do(t, a.newBrowser(t), http.MethodPost, "/register", url.Values{
		"username": {"alice"}, "password": {"pw"}, "confirmation": {"pw"},
	})
	if res.code != http.StatusBadRequest || !strings.Contains(res.body, "username already in use") {
		t.Errorf("duplicate register: status %d body %s", res.code, res.body)
	}
}

func TestNoCacheAndHealth(t *testing.T) {
	a := newTestApp(t)
	res := a.do(t, a.newBrowser(t), http.MethodGet, "/healthz", nil)
	if res.code != http.StatusOK || !strings.Contains(res.body, `"ok"`) {
		t.Errorf("healthz: status %d body %s", res.code, res.body)
	}
	if got := res.header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
	if res.header.Get("Pragma") != "no-cache" || res.header.Get("Expires") != "0" {
		t.Errorf("cache headers = %v", res.header)
	}

	a.db.Close()
	if res := a.do(t, a.newBrowser(t), http.MethodGet, "/healthz", nil); res.code != http.StatusServiceUnavailable {
		t.Errorf("healthz with closed db: status %d", res.code)
	}
}

func TestWebSocketReceivesOwnTrades(t *testing.T) {
	a := newTestApp(t)
	c := a.newBrowser(t)
	a.register(t, c, "alice")

	srvURL, _ := url.Parse(a.srv.URL)
	header := http.Header{}
	for _, ck := range c.Jar.Cookies(srvURL) {
		header.Add("Cookie", ck.Name+"="+ck.Value)
	}
	wsURL := "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/ws"
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(websocket.Message{Action: websocket.ActionPing}); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong websocket.Message
	if err := conn.ReadJSON(&pong); err != nil || pong.Action != websocket.ActionPong {
		t.Fatalf("ping answered with %+v, %v", pong, err)
	}

	if res := a.do(t, c, http.MethodPost, "/buy", url.Values{"symbol": {"ACME"}, "shares": {"2"}}); res.code != http.StatusSeeOther {
		t.Fatalf("buy: status %d", res.code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg struct {
		Action  string            `json:"action"`
		Payload models.TradeEvent `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Action != websocket.ActionTradeExecuted || msg.Payload.Symbol != "ACME" || msg.Payload.Shares != 2 {
		t.Errorf("trade message = %+v", msg)
	}
}

func TestStatusFor(t *testing.T) {
	if code, _ := handlers.StatusFor(services.ErrQuoteUnavailable); code != http.StatusServiceUnavailable {
		t.Errorf("quote unavailable -> %d", code)
	}
	if code, msg := handlers.StatusFor(errors.Join(services.ErrStore, errors.New("disk on fire"))); code != http.StatusInternalServerError || strings.Contains(msg, "disk") {
		t.Errorf("store error -> %d %q", code, msg)
	}
}
