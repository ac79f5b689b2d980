package views

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/papertrade-be/internal/models"
	"github.com/shopspring/decimal"
)

func TestRenderPages(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	price := decimal.RequireFromString("12.5")
	tests := []struct {
		page string
		data Page
		want []string
	}{
		{"index.html", Page{Username: "alice", Data: models.Portfolio{
			Positions: []models.Position{{Symbol: "ACME", Name: "Acme Corp", Shares: 2, Price: price, Total: price.Mul(decimal.NewFromInt(2))}},
			Unpriced:  []models.PriceAnomaly{{Symbol: "GONE", Shares: 1, Reason: "quote service unavailable"}},
			Cash:      decimal.NewFromInt(9975),
			Value:     decimal.NewFromInt(10000),
		}}, []string{"Acme Corp", "$12.50", "$25.00", "$9,975.00", "$10,000.00", "price unavailable", "Log Out"}},
		{"quoted.html", Page{Username: "alice", Data: models.Quote{Symbol: "ACME", Name: "Acme Corp", Price: price}},
			[]string{"A share of Acme Corp (ACME) costs $12.50."}},
		{"history.html", Page{Username: "alice", Data: []models.HistoryEntry{
			{Symbol: "ACME", Shares: -2, ShareValue: decimal.NewFromInt(30), Date: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		}}, []string{"sell", "$15.00", "$30.00", "2024-01-02 03:04:05"}},
		{"history.html", Page{Username: "alice"}, []string{"No trades yet."}},
		{"sell.html", Page{Username: "alice", Data: []string{"ACME", "BETA"}}, []string{`<option value="ACME">ACME</option>`, `<option value="BETA">BETA</option>`}},
		{"apology.html", Page{Data: map[string]any{"Code": 400, "Message": "must provide username"}}, []string{"Sorry, must provide username.", "Log In"}},
		{"statement.html", Page{Username: "alice", Data: template.HTML("<h1>Statement</h1>")}, []string{"<h1>Statement</h1>"}},
		{"activity.html", Page{Username: "alice", Data: []models.Event{{Level: "warn", Message: "Failed login attempt."}}}, []string{`class="warn"`, "Failed login attempt."}},
	}
	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := r.Render(rec, http.StatusTeapot, tt.page, tt.data); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if rec.Code != http.StatusTeapot {
				t.Errorf("status = %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
			body := rec.Body.String()
			for _, want := range tt.want {
				if !strings.Contains(body, want) {
					t.Errorf("page missing %q", want)
				}
			}
		})
	}
}

func TestRenderEscapesUserInput(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	data := Page{Username: "<b>mallory</b>", Data: models.Quote{Symbol: "X", Name: "<script>x</script>", Price: decimal.NewFromInt(1)}}
	if err := r.Render(rec, http.StatusOK, "quoted.html", data); err != nil {
		t.Fatal(err)
	}
	if body := rec.Body.String(); strings.Contains(body, "<script>x") || strings.Contains(body, "<b>mallory") {
		t.Errorf("unescaped user input in page:\n%s", body)
	}
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	if err := r.Render(rec, http.StatusOK, "nope.html", Page{}); err == nil {
		t.Error("expected error for unknown page")
	}
	if rec.Body.Len() != 0 {
		t.Error("wrote a body for an unknown page")
	}
}

func TestStatic(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/styles.css", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ".navbar") {
		t.Errorf("styles.css: status %d", rec.Code)
	}
}
