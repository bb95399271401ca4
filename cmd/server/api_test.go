package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/config"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/rates"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/store"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/submit"
)

const countyFixture = `[
	{"YEAR": 2022, "STATE": "OH", "COUNTY_NAME": "Franklin", "RATE_PER_100": 10},
	{"YEAR": 2022, "STATE": "WV", "COUNTY_NAME": "Kanawha", "RATE_PER_100": 69.3}
]`

func newTestServer(t *testing.T) *server {
	t.Helper()

	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if _, err := database.Exec(`
		CREATE TABLE submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at DATETIME NOT NULL,
			form_type TEXT NOT NULL,
			website_origin TEXT,
			form_json TEXT NOT NULL,
			results_json TEXT NOT NULL,
			document_url TEXT
		);
	`); err != nil {
		t.Fatalf("failed creating submissions table: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	ratesPath := filepath.Join(t.TempDir(), "counties.json")
	if err := os.WriteFile(ratesPath, []byte(countyFixture), 0o644); err != nil {
		t.Fatalf("failed to write rates fixture: %v", err)
	}
	rateStore := rates.NewStore(ratesPath)
	subsStore := store.New(database)

	return &server{
		cfg:   config.Config{ConfigVersion: "1.0.0", AdminToken: "secret-token"},
		db:    database,
		rates: rateStore,
		subs:  subsStore,
		submit: &submit.Service{
			Version:   "1.0.0",
			Rates:     rateStore,
			Recorders: []submit.Recorder{subsStore},
		},
	}
}

func doRequest(t *testing.T, srv *server, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	return rec
}

func TestConfigEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/config?version=2.0&form=community", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Fatalf("Cache-Control = %q", got)
	}

	var cfg struct {
		Version string `json:"version"`
		Form    string `json:"form"`
		Math    struct {
			RxRate       float64 `json:"rx_rate"`
			OpioidRxRate float64 `json:"opioid_rx_rate"`
		} `json:"math"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Version != "2.0" || cfg.Form != "community" {
		t.Fatalf("config echo wrong: %+v", cfg)
	}
	if cfg.Math.RxRate != 0.5 || cfg.Math.OpioidRxRate != 0.2 {
		t.Fatalf("math constants wrong: %+v", cfg.Math)
	}
}

func TestConfigEndpointDefaults(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/config", "", nil)

	var cfg struct {
		Version string `json:"version"`
		Form    string `json:"form"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Version != "1.0.0" || cfg.Form != "impact" {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
}

func TestCountyRatesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/data/counties", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "max-age=3600") {
		t.Fatalf("Cache-Control = %q", got)
	}

	var records []struct {
		State  string  `json:"STATE"`
		County string  `json:"COUNTY_NAME"`
		Rate   float64 `json:"RATE_PER_100"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 2 || records[0].County != "Franklin" {
		t.Fatalf("dataset wrong: %+v", records)
	}
}

func TestPopulationLookupIsNullStub(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/lookup/population?state=OH&county=Franklin", "", nil)

	var resp struct {
		State      string `json:"state"`
		County     string `json:"county"`
		Population *int64 `json:"population"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != "OH" || resp.County != "Franklin" || resp.Population != nil {
		t.Fatalf("lookup stub wrong: %+v", resp)
	}
}

func TestSubmitImpactRecomputesAndRecords(t *testing.T) {
	srv := newTestServer(t)

	body := `{"form": {"employees": "10000", "company": "Acme Health", "state": "TX",
		"county": "County Not Listed", "firstName": "Dana", "lastName": "Rivers",
		"email": "dana@acme.example.com"}, "referralToken": null}`
	header := http.Header{"Origin": []string{"https://host.example.com"}}

	rec := doRequest(t, srv, http.MethodPost, "/api/submit/impact", body, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OK      bool `json:"ok"`
		Results struct {
			Members         int64 `json:"members"`
			FinancialImpact int64 `json:"financialImpact"`
		} `json:"results"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.Results.Members != 25000 || resp.Results.FinancialImpact != 10_000_000 {
		t.Fatalf("authoritative results wrong: %+v", resp)
	}

	items, err := srv.subs.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 || items[0].WebsiteOrigin != "https://host.example.com" {
		t.Fatalf("submission not recorded: %+v", items)
	}
}

func TestSubmitCommunityUsesCountyRate(t *testing.T) {
	srv := newTestServer(t)

	body := `{"form": {"population": "1000", "state": "OH", "county": "Franklin",
		"email": "lead@example.com"}}`

	rec := doRequest(t, srv, http.MethodPost, "/api/submit/community", body, nil)

	var resp struct {
		Results struct {
			WithORx        int64 `json:"withORx"`
			UsedCountyRate bool  `json:"usedCountyRate"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Fixture rate is 10 per 100: 1000 → withRx 500 → withORx 50.
	if !resp.Results.UsedCountyRate || resp.Results.WithORx != 50 {
		t.Fatalf("county rate not applied: %+v", resp.Results)
	}
}

func TestSubmitCommunityOmitsFinancialBlock(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/submit/community",
		`{"form": {"population": "1000", "email": "lead@example.com"}}`, nil)

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	results, ok := raw["results"].(map[string]any)
	if !ok {
		t.Fatalf("results missing: %v", raw)
	}
	if _, present := results["financialImpact"]; present {
		t.Fatalf("community results must not carry financial fields: %v", results)
	}
}

func TestSubmitUnknownVariantIs404(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/submit/quarterly", `{"form": {}}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitMalformedBodyIs500(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/submit/impact", `{"form": `, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OK || resp.Error == "" {
		t.Fatalf("error payload wrong: %+v", resp)
	}
}

func TestAdminSubmissionsRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/admin/submissions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/admin/submissions", "",
		http.Header{"Authorization": []string{"Bearer wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/admin/submissions", "",
		http.Header{"Authorization": []string{"Bearer secret-token"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
}

func TestAdminSubmissionsHiddenWithoutConfiguredToken(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.AdminToken = ""

	rec := doRequest(t, srv, http.MethodGet, "/admin/submissions", "",
		http.Header{"Authorization": []string{"Bearer anything"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWebsiteOriginFallsBackToReferer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/submit/impact", nil)
	req.Header.Set("Referer", "https://host.example.com/pricing?utm=x")
	if got := websiteOrigin(req); got != "https://host.example.com" {
		t.Fatalf("websiteOrigin = %q, want referer origin", got)
	}

	req.Header.Set("Origin", "https://direct.example.com")
	if got := websiteOrigin(req); got != "https://direct.example.com" {
		t.Fatalf("websiteOrigin = %q, Origin header should win", got)
	}
}
