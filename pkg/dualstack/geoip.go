package dualstack

import (
	"net"

	"github.com/go-logr/logr"
	"github.com/oschwald/geoip2-golang"
)

// GeoIP annotates addresses with their country from a MaxMind database.
type GeoIP struct {
	db  *geoip2.Reader
	log logr.Logger
}

func OpenGeoIP(log logr.Logger, path string) (*GeoIP, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIP{db: db, log: log}, nil
}

func (g *GeoIP) Close() error {
	return g.db.Close()
}

// Country is the ISO code for addr, or "" if it's unknown.
func (g *GeoIP) Country(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return ""
	}
	rec, err := g.db.Country(ip)
	if err != nil {
		g.log.V(1).Info("GeoIP lookup failed", "addr", addr, "error", err.Error())
		return ""
	}
	return rec.Country.IsoCode
}
