package spatial

// DefaultPrecision gives cells of roughly 1.2km x 0.6km.
const DefaultPrecision = 6

// Geohash encodes lat/lng into a string
// Precision 5 = ~5km x 5km cells
// Precision 6 = ~1.2km x 0.6km cells
// Precision 7 = ~150m x 150m cells
//
// Grouping is by exact cell equality. Two points metres apart on opposite
// sides of a cell boundary hash to different keys. That is a product
// property of the service, not something to correct with neighbour lookups.
func Geohash(lat, lng float64, precision int) string {
	const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	var hash []byte
	var bit int
	var ch byte
	even := true

	for len(hash) < precision {
		if even {
			mid := (minLng + maxLng) / 2
			if lng >= mid {
				ch |= 1 << (4 - bit)
				minLng = mid
			} else {
				maxLng = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		even = !even

		bit++
		if bit == 5 {
			hash = append(hash, base32[ch])
			bit = 0
			ch = 0
		}
	}

	return string(hash)
}

// ZoneFromLocation returns the zone key for a location at the given
// precision. Precision outside 1..12 falls back to the default.
func ZoneFromLocation(lat, lng float64, precision int) string {
	if precision < 1 || precision > 12 {
		precision = DefaultPrecision
	}
	return Geohash(lat, lng, precision)
}
