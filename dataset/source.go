package dataset

import (
	"net/http"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Source provides the raw dataset. Implementations read their backing store
// exactly once per Load call; the caller decides when loads happen.
type Source interface {
	Load() ([]Country, error)
}

// FileSource reads the dataset from a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Load() ([]Country, error) {
	f, err := os.Open(s.Path)

	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "open %s: %v", s.Path, err)
	}

	defer f.Close()

	return Decode(f)
}

// URLSource fetches the dataset over HTTP(S). Client should be configured
// with the root CAs the deployment trusts; a nil Client falls back to the
// default client.
type URLSource struct {
	URL    string
	Client *http.Client
}

func (s URLSource) Load() ([]Country, error) {
	client := s.Client

	if client == nil {
		client = http.DefaultClient
	}

	log.WithField("url", s.URL).Info("Fetching dataset")

	res, err := client.Get(s.URL)

	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "fetch %s: %v", s.URL, err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrUnavailable, "fetch %s: unexpected status %d", s.URL, res.StatusCode)
	}

	return Decode(res.Body)
}
