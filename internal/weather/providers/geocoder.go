package providers

import (
	"fmt"

	"github.com/apex/log"
	"github.com/kelvins/geocoder"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/weather"
)

// forwardGeocode is swapped in tests.
var forwardGeocode = geocoder.Geocoding

// ResolveLocations fills in coordinates for city/country locations using the
// Google geocoding API, since Open-Meteo and WAQI only accept coordinates.
// Locations that already have coordinates are returned untouched. Failures
// are logged and the location is kept without coordinates.
func ResolveLocations(apiKey string, locs []weather.Location) []weather.Location {
	out := make([]weather.Location, len(locs))
	copy(out, locs)
	if apiKey == "" {
		return out
	}
	geocoder.ApiKey = apiKey

	for i, loc := range out {
		if loc.HasCoordinates() || loc.City == "" {
			continue
		}
		res, err := forwardGeocode(geocoder.Address{City: loc.City, Country: loc.Country})
		if err != nil {
			log.WithError(err).WithField("location", loc.Key()).Warn("geocoder: could not resolve location")
			continue
		}
		lat, lon := res.Latitude, res.Longitude
		out[i].Lat = &lat
		out[i].Lon = &lon
		if out[i].Name == "" {
			out[i].Name = fmt.Sprintf("%s, %s", loc.City, loc.Country)
		}
	}
	return out
}
