package matching

import "math"

// simpleLatLngDistance calculates the approximate distance between two pairs of coordinates with simplistic
// calculation of longitudinal distance based on latitudes.
// provides adequately accurate results for coordinates that are close together (in the same transit area)
// will not produce good results work for locations where longitude rolls over from -179.9 to 179.9
// returns distance in METERS
func simpleLatLngDistance(lat1, lon1, lat2, lon2 float64) float64 {
	//take average latitude and convert to radians
	lat := lat1 + lat2
	if lat != 0 { // don't divide by zero
		lat = (lat / 2) * 0.01745329
	}

	diffLat := 111300 * (lat1 - lat2)
	// at equator one degree is 111300 meters, use average latitude to convert
	diffLon := 111300 * math.Cos(lat) * (lon1 - lon2)

	return math.Sqrt((diffLon * diffLon) + (diffLat * diffLat))
}

// segmentProjection calculates the fractional projection of pointLat, pointLon
// onto the line from startLat, startLon to endLat, endLon, clamped to [0, 1],
// along with the nearest latitude and longitude on the segment.
// a degenerate zero-length segment projects to 0 at its start.
// will not produce good results for locations where longitude rolls over from -179.9 to 179.9
func segmentProjection(startLat, startLon, endLat, endLon, pointLat, pointLon float64) (pct, nearestLat, nearestLon float64) {
	pointStartLonDiff := pointLon - startLon
	pointStartLatDiff := pointLat - startLat
	segmentLonDiff := endLon - startLon
	segmentLatDiff := endLat - startLat
	segmentLengthSquared := (segmentLonDiff * segmentLonDiff) + (segmentLatDiff * segmentLatDiff)
	t := 0.0
	if segmentLengthSquared > 0 {
		pointsDiffSquared := pointStartLonDiff*segmentLonDiff + pointStartLatDiff*segmentLatDiff
		t = math.Min(1, math.Max(0, pointsDiffSquared/segmentLengthSquared))
	}
	return t, startLat + segmentLatDiff*t, startLon + segmentLonDiff*t
}
