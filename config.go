package atlas

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/worldatlas/atlas/dataset"
	"github.com/worldatlas/atlas/geo"
)

// Config represents our application's configuration.
type Config struct {
	// BindAddress is the address to bind our webserver to.
	BindAddress string `mapstructure:"bind"`

	// DatasetPath is the path to the nested country dataset file.
	DatasetPath string `mapstructure:"dataset"`

	// DatasetURL, when set, fetches the dataset over https instead of
	// reading DatasetPath.
	DatasetURL string `mapstructure:"datasetUrl"`

	// GeoDBPath is the path to a MaxMind GeoLite2 Country DB, used by the
	// optional locate endpoint. Leave empty to disable it.
	GeoDBPath string `mapstructure:"geodb"`

	// CacheSize is the number of encoded responses to keep in the LRU cache.
	CacheSize int `mapstructure:"cacheSize"`

	// WarmCache pre-encodes per-country responses after each load.
	WarmCache bool `mapstructure:"warmCache"`

	// ReloadToken is a secret token used for web-based reload.
	ReloadToken string `mapstructure:"reloadToken"`

	// ReloadFunc is called when a reload is done via http api.
	ReloadFunc func()

	// Source overrides the file/url dataset source when set.
	Source dataset.Source `mapstructure:"-"`

	// RootCAs is a list of CA certificates, which we parse from Mozilla directly.
	RootCAs *x509.CertPool

	datasetClient *http.Client
}

// SetRootCAs sets the root ca files, and creates the http client for
// remote dataset fetches. This **MUST** be called before the client is used.
func (c *Config) SetRootCAs(cas *x509.CertPool) {
	c.RootCAs = cas

	t := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs: cas,
		},
	}

	c.datasetClient = &http.Client{
		Transport: t,
		Timeout:   60 * time.Second,
	}
}

// source picks the dataset source from the configuration.
func (c *Config) source() dataset.Source {
	if c.Source != nil {
		return c.Source
	}

	if c.DatasetURL != "" {
		return dataset.URLSource{
			URL:    c.DatasetURL,
			Client: c.datasetClient,
		}
	}

	return dataset.FileSource{
		Path: c.DatasetPath,
	}
}

// ReloadConfig loads the dataset, builds a fresh index and swaps it in.
// On reload, a failure leaves the previous index serving; the initial call
// from Start treats a failure as fatal instead.
func (a *Atlas) ReloadConfig() error {
	log.Info("Loading dataset...")

	data, err := a.config.source().Load()

	if err != nil {
		return errors.Wrap(err, "unable to load dataset")
	}

	idx := NewIndex(data)

	// Geo database is optional and only backs the locate endpoint.
	if a.config.GeoDBPath != "" {
		if a.geoip != nil {
			if err := a.geoip.Close(); err != nil {
				return errors.Wrap(err, "unable to close geo database")
			}
		}

		a.geoip, err = geo.NewMaxmindProvider(a.config.GeoDBPath)

		if err != nil {
			return errors.Wrap(err, "unable to open geo database")
		}
	}

	// Every load gets its own cache, swapped in together with the index,
	// so stale responses never outlive a dataset swap: a warm-up still
	// running for a superseded index only writes into the cache that was
	// retired with it.
	cache, err := lru.New(a.config.CacheSize)

	if err != nil {
		return errors.Wrap(err, "unable to create response cache")
	}

	snap := &snapshot{
		index: idx,
		cache: cache,
	}

	a.current.Store(snap)

	datasetLoads.Inc()

	log.WithFields(log.Fields{
		"countries": len(data),
	}).Info("Dataset indexed")

	if a.config.WarmCache {
		go a.warmCache(snap)
	}

	return nil
}
