package atlas

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// Cache keys. Distinct types keep the three response families from
// colliding in the shared LRU.
type (
	countriesKey struct{}
	statesKey    struct{ code string }
)

type errorResponse struct {
	Error string `json:"error"`
}

func (a *Atlas) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// countriesHandler lists every country in dataset order.
func (a *Atlas) countriesHandler(w http.ResponseWriter, r *http.Request) {
	countryLists.Inc()

	snap := a.snap()

	a.writeCached(w, snap, countriesKey{}, func() (any, error) {
		return snap.index.Countries(), nil
	})
}

// statesHandler lists the states of one country.
func (a *Atlas) statesHandler(w http.ResponseWriter, r *http.Request) {
	stateLookups.Inc()

	code := NormalizeCode(chi.URLParam(r, "code"))

	snap := a.snap()

	a.writeCached(w, snap, statesKey{code: code}, func() (any, error) {
		return snap.index.States(code)
	})
}

// citiesHandler lists the cities of one state within one country.
func (a *Atlas) citiesHandler(w http.ResponseWriter, r *http.Request) {
	cityLookups.Inc()

	code := NormalizeCode(chi.URLParam(r, "code"))

	// The path segment is a numeric state id, not a state code.
	stateID, err := strconv.ParseInt(chi.URLParam(r, "stateID"), 10, 64)

	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid state id"})
		return
	}

	snap := a.snap()

	a.writeCached(w, snap, StateKey{Code: code, StateID: stateID}, func() (any, error) {
		return snap.index.Cities(code, stateID)
	})
}

// locateHandler resolves the client address to a country record via the
// optional GeoIP database.
func (a *Atlas) locateHandler(w http.ResponseWriter, r *http.Request) {
	if a.geoip == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "geo lookups not configured"})
		return
	}

	ipStr, _, err := net.SplitHostPort(r.RemoteAddr)

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	record, err := a.geoip.Country(net.ParseIP(ipStr))

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	country, ok := a.idx().Country(record.IsoCode())

	if !ok {
		lookupMisses.Inc()
		writeJSON(w, http.StatusNotFound, errorResponse{Error: ErrCountryNotFound.Error()})
		return
	}

	writeJSON(w, http.StatusOK, country)
}

// reloadHandler reloads the dataset and swaps the index. It is guarded by
// the reload token, passed as a bearer token or a token query parameter.
func (a *Atlas) reloadHandler(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")

	if token != "" {
		token = trimBearer(token)
	} else {
		token = r.URL.Query().Get("token")
	}

	if a.config.ReloadToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(a.config.ReloadToken)) != 1 {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if a.config.ReloadFunc != nil {
		a.config.ReloadFunc()
	}

	if err := a.ReloadConfig(); err != nil {
		log.WithError(err).Error("Unable to reload dataset")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reload failed"})
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func trimBearer(header string) string {
	const prefix = "Bearer "

	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}

	return header
}

// writeCached serves an encoded response from the snapshot's LRU when
// possible, otherwise runs the lookup, encodes it and caches the body.
// Failed lookups are never cached.
func (a *Atlas) writeCached(w http.ResponseWriter, snap *snapshot, key any, load func() (any, error)) {
	if v, ok := snap.cache.Get(key); ok {
		cacheHits.Inc()
		writeBody(w, http.StatusOK, v.([]byte))
		return
	}

	data, err := load()

	if err != nil {
		a.writeError(w, err)
		return
	}

	body, err := json.Marshal(data)

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	snap.cache.Add(key, body)

	writeBody(w, http.StatusOK, body)
}

// writeError maps the lookup error taxonomy onto status codes: the two
// expected not-found outcomes become 404s, anything else is a generic 500.
func (a *Atlas) writeError(w http.ResponseWriter, err error) {
	switch err {
	case ErrCountryNotFound, ErrStateNotFound:
		lookupMisses.Inc()
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.WithError(err).Error("Unexpected lookup failure")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

// warmCache pre-encodes the country list and every per-country state
// response, so the first requests after a load are cache hits. It only
// ever writes into its own snapshot's cache: once a reload retires the
// snapshot, these writes become invisible to requests.
func (a *Atlas) warmCache(snap *snapshot) {
	p := pool.New().WithMaxGoroutines(runtime.NumCPU())

	if body, err := json.Marshal(snap.index.Countries()); err == nil {
		snap.cache.Add(countriesKey{}, body)
	}

	for _, country := range snap.index.Countries() {
		code := NormalizeCode(country.ISO2)

		p.Go(func() {
			states, err := snap.index.States(code)

			if err != nil {
				return
			}

			body, err := json.Marshal(states)

			if err != nil {
				return
			}

			snap.cache.Add(statesKey{code: code}, body)
		})
	}

	p.Wait()

	log.WithField("entries", snap.cache.Len()).Debug("Cache warmed")
}
