// Package geo resolves IP addresses to countries via a MaxMind database.
package geo

import (
	"net"
)

type Provider interface {
	Country(ip net.IP) (*Record, error)
	Close() error
}
