package main

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/calc"
	"github.com/lxndrtsh/ofa-calculator-embed/internal/submit"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleConfig serves the versioned form configuration the widget boots
// from. Built fresh from static constants on every request; clients may
// cache for a minute.
func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")
	if version == "" {
		version = s.cfg.ConfigVersion
	}
	form := calc.VariantImpact
	if v, ok := calc.ParseVariant(r.URL.Query().Get("form")); ok {
		form = v
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, calc.Default(version, form))
}

// handleCountyRates serves the full county rate dataset for client-side
// preview lookups. The dataset is immutable per process, so an hour of
// client caching is safe.
func (s *server) handleCountyRates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600, s-maxage=3600")
	writeJSON(w, http.StatusOK, s.rates.All())
}

type populationLookupResponse struct {
	State      string `json:"state"`
	County     string `json:"county"`
	Population *int64 `json:"population"`
}

// handlePopulationLookup echoes the request back with a null population.
// The upstream population source is not wired yet; the widget treats null
// as "ask the user".
func (s *server) handlePopulationLookup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, populationLookupResponse{
		State:  r.URL.Query().Get("state"),
		County: r.URL.Query().Get("county"),
	})
}

type submitRequest struct {
	Form          submit.FormInput `json:"form"`
	ReferralToken *string          `json:"referralToken"`
}

type submitResponse struct {
	OK      bool        `json:"ok"`
	Results calc.Result `json:"results"`
	PDFURL  string      `json:"pdfUrl,omitempty"`
	Message string      `json:"message"`
}

type submitErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleSubmit is the authoritative submission path. Whatever numbers the
// widget previewed client-side are ignored; the pipeline runs again here
// from the raw form values.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	variant, ok := calc.ParseVariant(chi.URLParam(r, "variant"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, submitErrorResponse{
			Error:   "Failed to submit form",
			Details: err.Error(),
		})
		return
	}

	// TODO: forward req.ReferralToken to the referral program once its
	// intake API exists.

	outcome := s.submit.Submit(r.Context(), variant, req.Form, websiteOrigin(r))

	writeJSON(w, http.StatusOK, submitResponse{
		OK:      outcome.OK,
		Results: outcome.Results,
		PDFURL:  outcome.DocumentURL,
		Message: "Form submitted successfully",
	})
}

// websiteOrigin identifies the embedding site for the submission record.
// Origin is the reliable signal; Referer is the fallback for browsers that
// strip it on cross-origin POSTs.
func websiteOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
		return referer
	}
	return ""
}

// handleSubmissionsList serves the recorded submissions, newest first, with
// an optional substring filter on company or email.
func (s *server) handleSubmissionsList(w http.ResponseWriter, r *http.Request) {
	items, err := s.subs.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, "failed to load submissions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
