// Package atlas serves hierarchical geographic reference data (countries,
// states, cities) from a static dataset via read-only lookups.
package atlas

import (
	"net/http"
	"sync/atomic"

	"github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/worldatlas/atlas/geo"
	"github.com/worldatlas/atlas/middleware"
)

var (
	countryLists = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_country_lists",
		Help: "The total number of country list requests served",
	})

	stateLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_state_lookups",
		Help: "The total number of state lookups served",
	})

	cityLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_city_lookups",
		Help: "The total number of city lookups served",
	})

	lookupMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_lookup_misses",
		Help: "The total number of lookups for unknown countries or states",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_cache_hits",
		Help: "The total number of responses served from the cache",
	})

	datasetLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_dataset_loads",
		Help: "The total number of dataset loads, including the initial one",
	})
)

// snapshot bundles an index with the response cache encoded from it.
// The two only ever travel together, so a late cache write from a
// superseded index can never reach the cache requests are served from.
type snapshot struct {
	index *Index
	cache *lru.Cache
}

// Atlas is our application instance.
type Atlas struct {
	config *Config

	// current is swapped wholesale on reload; the Index itself is immutable.
	current atomic.Pointer[snapshot]

	geoip geo.Provider
}

// New creates a new instance of Atlas.
func New(config *Config) *Atlas {
	return &Atlas{
		config: config,
	}
}

// Start loads the dataset, registers the routes and binds the webserver,
// then returns the http.Handler. A load failure at this point is fatal:
// the service never comes up with absent or corrupt data.
func (a *Atlas) Start() http.Handler {
	if err := a.ReloadConfig(); err != nil {
		log.WithError(err).Fatalln("Unable to load dataset")
	}

	log.Info("Setting up routes")

	router := a.Handler()

	if a.config.BindAddress != "" {
		log.WithField("bind", a.config.BindAddress).Info("Binding to address")

		go http.ListenAndServe(a.config.BindAddress, router)
	}

	return router
}

// Handler builds the route table.
func (a *Atlas) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RealIPMiddleware)
	router.Use(logger.Logger("router", log.StandardLogger()))

	router.Head("/status", a.statusHandler)
	router.Get("/status", a.statusHandler)
	router.Get("/v1/countries", a.countriesHandler)
	router.Get("/v1/countries/{code}/states", a.statesHandler)
	router.Get("/v1/countries/{code}/states/{stateID}/cities", a.citiesHandler)
	router.Get("/v1/locate", a.locateHandler)
	router.Post("/reload", a.reloadHandler)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	return router
}

// snap returns the serving snapshot. It is only nil before the first load.
func (a *Atlas) snap() *snapshot {
	return a.current.Load()
}

// idx returns the current index.
func (a *Atlas) idx() *Index {
	return a.snap().index
}
