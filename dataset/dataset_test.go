package dataset

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const validJson = `[
  {
    "id": 2,
    "name": "United States",
    "iso2": "US",
    "iso3": "USA",
    "phonecode": "1",
    "states": [
      {
        "id": 5,
        "name": "California",
        "cities": [
          {"id": 10, "name": "Los Angeles"}
        ]
      }
    ]
  }
]
`

var _ = Describe("Decode", func() {
	It("Should decode a valid dataset", func() {
		countries, err := Decode(strings.NewReader(validJson))

		Expect(err).To(BeNil())
		Expect(countries).To(HaveLen(1))
		Expect(countries[0].Name).To(Equal("United States"))
		Expect(countries[0].States).To(HaveLen(1))
		Expect(countries[0].States[0].Cities).To(HaveLen(1))
	})

	It("Should reject content that is not a country array", func() {
		_, err := Decode(strings.NewReader(`{"foo": 1}`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should reject fields of the wrong type", func() {
		_, err := Decode(strings.NewReader(`[{"id": 1, "name": "X-Land", "iso2": 3}]`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should reject a country without a name", func() {
		_, err := Decode(strings.NewReader(`[{"id": 1, "iso2": "XL"}]`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should reject a country without a valid id", func() {
		_, err := Decode(strings.NewReader(`[{"name": "X-Land", "iso2": "XL"}]`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should reject an iso2 code that is not two letters", func() {
		_, err := Decode(strings.NewReader(`[{"id": 1, "name": "X-Land", "iso2": "XLD"}]`))

		Expect(err).To(MatchError(ErrMalformed))

		_, err = Decode(strings.NewReader(`[{"id": 1, "name": "X-Land", "iso2": "X1"}]`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should reject duplicate country codes regardless of casing", func() {
		_, err := Decode(strings.NewReader(`[
			{"id": 1, "name": "X-Land", "iso2": "XL"},
			{"id": 2, "name": "Other X-Land", "iso2": "xl"}
		]`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should reject duplicate state ids within a country", func() {
		_, err := Decode(strings.NewReader(`[
			{"id": 1, "name": "X-Land", "iso2": "XL", "states": [
				{"id": 5, "name": "North"},
				{"id": 5, "name": "South"}
			]}
		]`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should reject duplicate city ids within a state", func() {
		_, err := Decode(strings.NewReader(`[
			{"id": 1, "name": "X-Land", "iso2": "XL", "states": [
				{"id": 5, "name": "North", "cities": [
					{"id": 10, "name": "Northtown"},
					{"id": 10, "name": "Northville"}
				]}
			]}
		]`))

		Expect(err).To(MatchError(ErrMalformed))
	})

	It("Should allow the same state id under different countries", func() {
		countries, err := Decode(strings.NewReader(`[
			{"id": 1, "name": "X-Land", "iso2": "XL", "states": [{"id": 5, "name": "North"}]},
			{"id": 2, "name": "Y-Land", "iso2": "YL", "states": [{"id": 5, "name": "East"}]}
		]`))

		Expect(err).To(BeNil())
		Expect(countries).To(HaveLen(2))
	})
})

var _ = Describe("Sources", func() {
	Context("FileSource", func() {
		It("Should load a dataset from disk", func() {
			path := filepath.Join(GinkgoT().TempDir(), "countries.json")

			Expect(os.WriteFile(path, []byte(validJson), 0o644)).To(Succeed())

			countries, err := FileSource{Path: path}.Load()

			Expect(err).To(BeNil())
			Expect(countries).To(HaveLen(1))
		})

		It("Should report a missing file as unavailable", func() {
			_, err := FileSource{Path: "/does/not/exist.json"}.Load()

			Expect(err).To(MatchError(ErrUnavailable))
		})
	})

	Context("URLSource", func() {
		It("Should fetch a dataset over http", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(validJson))
			}))
			defer server.Close()

			countries, err := URLSource{URL: server.URL}.Load()

			Expect(err).To(BeNil())
			Expect(countries).To(HaveLen(1))
		})

		It("Should report a non-200 response as unavailable", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer server.Close()

			_, err := URLSource{URL: server.URL}.Load()

			Expect(err).To(MatchError(ErrUnavailable))
		})
	})
})
