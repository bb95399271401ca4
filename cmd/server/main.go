package main

import (
	"database/sql"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/config"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/db"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/hubspot"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/migrations"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/rates"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/report"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/spaces"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/store"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/submit"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/webhook"
)

type server struct {
	cfg    config.Config
	db     *sql.DB
	rates  *rates.Store
	subs   *store.Store
	submit *submit.Service
}

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	rateStore := rates.NewStore(cfg.RatesPath)
	subsStore := store.New(database)

	svc := &submit.Service{
		Version:   cfg.ConfigVersion,
		Rates:     rateStore,
		CRM:       hubspot.New(cfg.HubSpotToken),
		Recorders: []submit.Recorder{subsStore},
	}
	if cfg.Spaces.Configured() {
		uploader, err := spaces.New(spaces.Config{
			Endpoint:  cfg.Spaces.Endpoint,
			Region:    cfg.Spaces.Region,
			Bucket:    cfg.Spaces.Bucket,
			AccessKey: cfg.Spaces.AccessKey,
			SecretKey: cfg.Spaces.SecretKey,
			CDNDomain: cfg.Spaces.CDNDomain,
		})
		if err != nil {
			log.Printf("warning: spaces client unavailable, report uploads disabled: %v", err)
		} else {
			svc.Uploader = uploader
			svc.Renderer = report.NewRenderer()
		}
	}
	if cfg.WebhookURL != "" {
		svc.Recorders = append(svc.Recorders, webhook.New(cfg.WebhookURL))
	}

	srv := &server{cfg: cfg, db: database, rates: rateStore, subs: subsStore, submit: svc}

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	r.Get("/embed/{variant}", s.handleEmbedPage)
	r.Get("/api/config", s.handleConfig)
	r.Get("/api/data/counties", s.handleCountyRates)
	r.Get("/api/lookup/population", s.handlePopulationLookup)
	r.Post("/api/submit/{variant}", s.handleSubmit)
	r.Get("/admin/submissions", s.requireAdmin(s.handleSubmissionsList))
	return r
}

type embedViewData struct {
	Variant string
	Theme   string
	Version string
	Title   string
}

// handleEmbedPage serves the widget page loaded inside the iframe. The page
// carries the handshake script; the query parameters let it render with the
// right theme before BOOT delivers the full payload.
func (s *server) handleEmbedPage(w http.ResponseWriter, r *http.Request) {
	variant := chi.URLParam(r, "variant")
	if variant != "impact" && variant != "community" {
		http.NotFound(w, r)
		return
	}

	theme := r.URL.Query().Get("theme")
	if theme != "dark" {
		theme = "light"
	}
	version := r.URL.Query().Get("v")
	if version == "" {
		version = s.cfg.ConfigVersion
	}

	title := "Impact Analysis"
	if variant == "community" {
		title = "Return-on-Community"
	}

	s.renderTemplate(w, "embed.html", embedViewData{
		Variant: variant,
		Theme:   theme,
		Version: version,
		Title:   title,
	})
}

func (s *server) renderTemplate(w http.ResponseWriter, page string, data any) {
	tmpl, err := template.ParseFiles("web/templates/" + page)
	if err != nil {
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}
}
