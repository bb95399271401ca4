// Package store persists completed submissions to sqlite.
package store

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/submit"
)

// Store records submissions. It is one of the submission service's
// fire-and-forget recorders; a failed insert is logged upstream and the
// submission still succeeds.
type Store struct {
	db *sql.DB
}

// New returns a Store over db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one submission row. Form and results are stored as JSON so
// the schema survives form changes.
func (s *Store) Record(ctx context.Context, sub submit.Submission) error {
	formJSON, err := json.Marshal(sub.Form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	resultsJSON, err := json.Marshal(sub.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (created_at, form_type, website_origin, form_json, results_json, document_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.SubmittedAt.Format("2006-01-02 15:04:05"), string(sub.FormType), sub.WebsiteOrigin, string(formJSON), string(resultsJSON), sub.DocumentURL)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListItem is one row of the admin submissions listing.
type ListItem struct {
	CreatedAt     string `json:"createdAt"`
	FormType      string `json:"formType"`
	Company       string `json:"company"`
	Email         string `json:"email"`
	Members       int64  `json:"members"`
	DocumentURL   string `json:"pdfUrl,omitempty"`
	WebsiteOrigin string `json:"websiteOrigin,omitempty"`
}

// List returns submissions newest first, optionally filtered by a substring
// of the lead's company or email.
func (s *Store) List(ctx context.Context, query string) ([]ListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			created_at,
			form_type,
			COALESCE(website_origin, ''),
			form_json,
			results_json,
			COALESCE(document_url, '')
		FROM submissions
		WHERE (? = '' OR form_json LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	items := make([]ListItem, 0)
	for rows.Next() {
		var item ListItem
		var formJSON, resultsJSON string
		if err := rows.Scan(&item.CreatedAt, &item.FormType, &item.WebsiteOrigin, &formJSON, &resultsJSON, &item.DocumentURL); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		item.Company, item.Email = extractContact(formJSON)
		item.Members = extractMembers(resultsJSON)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return items, nil
}

func extractContact(formJSON string) (company, email string) {
	var form struct {
		Company string `json:"company"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal([]byte(formJSON), &form); err != nil {
		return "", ""
	}
	return form.Company, form.Email
}

func extractMembers(resultsJSON string) int64 {
	var results struct {
		Members int64 `json:"members"`
	}
	if err := json.Unmarshal([]byte(resultsJSON), &results); err != nil {
		return 0
	}
	return results.Members
}
