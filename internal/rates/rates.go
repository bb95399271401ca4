// Package rates serves the per-county opioid prescription rate dataset used
// to override the configured default rate.
package rates

import (
	"log"
	"os"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
)

// CountyNotListed is the sentinel a user picks when their county is not in
// the dataset. It never matches a record and skips the lookup entirely.
const CountyNotListed = "County Not Listed"

// Record is one dataset entry. Field tags match the upstream dataset file,
// which uses uppercase column names.
type Record struct {
	Year       int     `json:"YEAR"`
	State      string  `json:"STATE"`
	County     string  `json:"COUNTY_NAME"`
	RatePer100 float64 `json:"RATE_PER_100"`
}

// Store is a lazily-loaded, read-only view of the dataset. The file is read
// at most once per process; a changed dataset requires a restart. An
// unreadable dataset degrades to an empty one (logged, never an error), since
// county rates are an accuracy enhancement, not a correctness requirement.
type Store struct {
	path    string
	once    sync.Once
	records []Record
}

// NewStore returns a Store reading from path on first use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() []Record {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			log.Printf("county rates: failed to read dataset %s: %v", s.path, err)
			return
		}
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			log.Printf("county rates: failed to parse dataset %s: %v", s.path, err)
			return
		}
		s.records = records
	})
	return s.records
}

// Lookup returns the rate-per-100 for a state and county. Empty inputs and
// the CountyNotListed sentinel return false without touching the dataset;
// otherwise the first matching record wins.
func (s *Store) Lookup(state, county string) (float64, bool) {
	if state == "" || county == "" || county == CountyNotListed {
		return 0, false
	}
	for _, r := range s.load() {
		if r.State == state && r.County == county {
			return r.RatePer100, true
		}
	}
	return 0, false
}

// CountiesForState returns the distinct county names recorded for a state,
// sorted alphabetically, for populating selection UI.
func (s *Store) CountiesForState(state string) []string {
	seen := make(map[string]bool)
	counties := make([]string, 0)
	for _, r := range s.load() {
		if r.State != state || seen[r.County] {
			continue
		}
		seen[r.County] = true
		counties = append(counties, r.County)
	}
	sort.Strings(counties)
	return counties
}

// All returns every record for the dataset endpoint. Callers must not
// mutate the returned slice.
func (s *Store) All() []Record {
	records := s.load()
	if records == nil {
		return []Record{}
	}
	return records
}
