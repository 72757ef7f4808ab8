// Package dataset loads the nested country/state/city dataset and validates
// its shape before the index is built from it.
package dataset

import (
	"encoding/json"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
)

var (
	// ErrUnavailable is returned when the dataset source cannot be read.
	ErrUnavailable = errors.New("dataset unavailable")

	// ErrMalformed is returned when the dataset cannot be decoded, or decodes
	// into a structurally invalid shape.
	ErrMalformed = errors.New("dataset malformed")
)

// Country is a raw dataset record. States may be absent entirely.
type Country struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	ISO2      string  `json:"iso2"`
	ISO3      string  `json:"iso3"`
	PhoneCode string  `json:"phonecode"`
	States    []State `json:"states"`
}

// State is a raw dataset record nested in a Country.
type State struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Cities []City `json:"cities"`
}

// City is a raw dataset record nested in a State.
type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

var codeFolder = cases.Fold()

// Decode parses and validates a dataset. Anything that would otherwise fail
// at query time is rejected here, wrapped as ErrMalformed.
func Decode(r io.Reader) ([]Country, error) {
	var countries []Country

	if err := json.NewDecoder(r).Decode(&countries); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "decode: %v", err)
	}

	if err := validate(countries); err != nil {
		return nil, err
	}

	return countries, nil
}

func validate(countries []Country) error {
	seenCodes := make(map[string]bool, len(countries))

	for i, country := range countries {
		if country.ID <= 0 {
			return errors.Wrapf(ErrMalformed, "country %d: missing or invalid id", i)
		}

		if country.Name == "" {
			return errors.Wrapf(ErrMalformed, "country %d: missing name", i)
		}

		if !validISO2(country.ISO2) {
			return errors.Wrapf(ErrMalformed, "country %q: invalid iso2 %q", country.Name, country.ISO2)
		}

		code := codeFolder.String(strings.TrimSpace(country.ISO2))

		if seenCodes[code] {
			return errors.Wrapf(ErrMalformed, "country %q: duplicate iso2 %q", country.Name, country.ISO2)
		}

		seenCodes[code] = true

		seenStates := make(map[int64]bool, len(country.States))

		for _, state := range country.States {
			if state.ID <= 0 {
				return errors.Wrapf(ErrMalformed, "country %q: state with missing or invalid id", country.Name)
			}

			if state.Name == "" {
				return errors.Wrapf(ErrMalformed, "country %q: state %d missing name", country.Name, state.ID)
			}

			if seenStates[state.ID] {
				return errors.Wrapf(ErrMalformed, "country %q: duplicate state id %d", country.Name, state.ID)
			}

			seenStates[state.ID] = true

			seenCities := make(map[int64]bool, len(state.Cities))

			for _, city := range state.Cities {
				if city.ID <= 0 {
					return errors.Wrapf(ErrMalformed, "state %q: city with missing or invalid id", state.Name)
				}

				if city.Name == "" {
					return errors.Wrapf(ErrMalformed, "state %q: city %d missing name", state.Name, city.ID)
				}

				if seenCities[city.ID] {
					return errors.Wrapf(ErrMalformed, "state %q: duplicate city id %d", state.Name, city.ID)
				}

				seenCities[city.ID] = true
			}
		}
	}

	return nil
}

func validISO2(code string) bool {
	code = strings.TrimSpace(code)

	if len(code) != 2 {
		return false
	}

	for _, r := range code {
		if !unicode.IsLetter(r) {
			return false
		}
	}

	return true
}
