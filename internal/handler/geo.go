package handler

import (
	"math"
	"net/url"
	"strconv"

	"github.com/dropline/vendor-console/internal/vendorapi"
)

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

func directionsURL(from, to vendorapi.Point) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", latLng(from))
	q.Set("destination", latLng(to))
	return "https://www.google.com/maps/dir/?" + q.Encode()
}

func latLng(p vendorapi.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
