package geo

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
	"github.com/pkg/errors"
)

type MaxmindProvider struct {
	db *maxminddb.Reader
}

func NewMaxmindProvider(path string) (Provider, error) {
	db, err := maxminddb.Open(path)

	if err != nil {
		return nil, errors.Wrap(err, "unable to open geo database")
	}

	return &MaxmindProvider{db: db}, nil
}

func (m *MaxmindProvider) Country(ip net.IP) (*Record, error) {
	var record Record

	if err := m.db.Lookup(ip, &record); err != nil {
		return nil, err
	}

	return &record, nil
}

func (m *MaxmindProvider) Close() error {
	if m.db != nil {
		return m.db.Close()
	}

	return nil
}
