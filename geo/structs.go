package geo

// Record represents the country blocks of a MaxmindDB entry.
type Record struct {
	Country           Country `maxminddb:"country" json:"country"`
	RegisteredCountry Country `maxminddb:"registered_country" json:"registered_country"`
}

type Country struct {
	GeoNameID uint              `maxminddb:"geoname_id" json:"geoname_id"`
	IsoCode   string            `maxminddb:"iso_code" json:"iso_code"`
	Names     map[string]string `maxminddb:"names" json:"names"`
}

// IsoCode returns the located country's code, falling back to the
// registered country when the geolocated one is missing.
func (r *Record) IsoCode() string {
	if r.Country.IsoCode != "" {
		return r.Country.IsoCode
	}

	return r.RegisteredCountry.IsoCode
}
