package util

import (
	"crypto/x509"
	"net/http"

	"github.com/gwatts/rootcerts/certparse"
	log "github.com/sirupsen/logrus"
)

const certdataURL = "https://github.com/mozilla/gecko-dev/blob/master/security/nss/lib/ckfw/builtins/certdata.txt?raw=true"

// LoadCACerts loads the certdata from Mozilla and parses it into a CertPool.
// The pool backs the TLS client used for remote dataset fetches.
func LoadCACerts() (*x509.CertPool, error) {
	res, err := http.Get(certdataURL)

	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	certs, err := certparse.ReadTrustedCerts(res.Body)

	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()

	var count int

	for _, cert := range certs {
		if cert.Trust&certparse.ServerTrustedDelegator == 0 {
			continue
		}

		count++

		pool.AddCert(cert.Cert)
	}

	log.WithField("certs", count).Info("Loaded root cas")

	return pool, nil
}
