package atlas

import (
	"errors"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/worldatlas/atlas/dataset"
)

// Lookup failures surfaced to the boundary as typed errors.
// They are distinct so callers can tell an unknown country from a state
// that does not belong to the country they named.
var (
	ErrCountryNotFound = errors.New("country not found")
	ErrStateNotFound   = errors.New("state not found")
)

var codeFolder = cases.Fold()

// NormalizeCode case-folds a country code for use as an index key.
// Folding rather than ASCII lowercasing keeps lookups correct for
// non-ASCII input without special cases.
func NormalizeCode(code string) string {
	return codeFolder.String(strings.TrimSpace(code))
}

// Country is the trimmed country record served to callers.
type Country struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ISO2      string `json:"iso2"`
	ISO3      string `json:"iso3"`
	PhoneCode string `json:"phonecode"`
}

// State is the trimmed state record served to callers.
type State struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// City is the trimmed city record served to callers.
type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StateKey identifies a state within a country. A struct key avoids the
// collision and formatting ambiguity of concatenated string keys.
type StateKey struct {
	Code    string
	StateID int64
}

// Index holds the lookup tables built from the dataset: countries in dataset
// order, countries by folded ISO2 code, states per country (ordered slice for
// output, id map for existence checks), and cities per (country, state) pair.
//
// An Index is never mutated after NewIndex returns, so it is safe for any
// number of concurrent readers without coordination.
type Index struct {
	countries     []Country
	countryByCode map[string]Country
	statesByCode  map[string][]State
	stateByID     map[string]map[int64]State
	citiesByState map[StateKey][]City
}

// NewIndex builds the lookup tables from a loaded dataset in a single pass.
// Countries with no states still get an (empty) state table, and states with
// no cities still get an (empty) city slice, so "found but empty" remains
// distinguishable from "not found".
func NewIndex(data []dataset.Country) *Index {
	idx := &Index{
		countries:     make([]Country, 0, len(data)),
		countryByCode: make(map[string]Country, len(data)),
		statesByCode:  make(map[string][]State, len(data)),
		stateByID:     make(map[string]map[int64]State, len(data)),
		citiesByState: make(map[StateKey][]City),
	}

	for _, c := range data {
		code := NormalizeCode(c.ISO2)

		country := Country{
			ID:        c.ID,
			Name:      c.Name,
			ISO2:      c.ISO2,
			ISO3:      c.ISO3,
			PhoneCode: c.PhoneCode,
		}

		idx.countries = append(idx.countries, country)
		idx.countryByCode[code] = country

		states := make([]State, 0, len(c.States))
		byID := make(map[int64]State, len(c.States))

		for _, s := range c.States {
			state := State{ID: s.ID, Name: s.Name}

			states = append(states, state)
			byID[s.ID] = state

			idx.citiesByState[StateKey{Code: code, StateID: s.ID}] = lo.Map(s.Cities, func(city dataset.City, _ int) City {
				return City{ID: city.ID, Name: city.Name}
			})
		}

		idx.statesByCode[code] = states
		idx.stateByID[code] = byID
	}

	return idx
}

// Countries lists every country in dataset order.
func (idx *Index) Countries() []Country {
	return idx.countries
}

// Country returns the record for a single country code.
func (idx *Index) Country(code string) (Country, bool) {
	country, ok := idx.countryByCode[NormalizeCode(code)]

	return country, ok
}

// States returns the states of a country in dataset order. A known country
// with no states yields an empty slice, not an error.
func (idx *Index) States(code string) ([]State, error) {
	states, ok := idx.statesByCode[NormalizeCode(code)]

	if !ok {
		return nil, ErrCountryNotFound
	}

	return states, nil
}

// Cities returns the cities of a state in dataset order. Resolution is
// staged: the country is checked before the state, so the two failures stay
// distinct even when state ids collide across countries.
func (idx *Index) Cities(code string, stateID int64) ([]City, error) {
	folded := NormalizeCode(code)

	states, ok := idx.stateByID[folded]

	if !ok {
		return nil, ErrCountryNotFound
	}

	if _, ok := states[stateID]; !ok {
		return nil, ErrStateNotFound
	}

	return idx.citiesByState[StateKey{Code: folded, StateID: stateID}], nil
}
