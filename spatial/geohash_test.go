package spatial

import "testing"

func TestGeohashKnownValues(t *testing.T) {
	tests := []struct {
		name      string
		lat, lng  float64
		precision int
		want      string
	}{
		{"reference vector", 57.64911, 10.40744, 11, "u4pruydqqvj"},
		{"reference vector precision 6", 57.64911, 10.40744, 6, "u4pruy"},
		{"equator meridian", 0, 0, 6, "s00000"},
		{"north pole", 90, 180, 6, "zzzzzz"},
		{"south west corner", -90, -180, 6, "000000"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Geohash(tc.lat, tc.lng, tc.precision)
			if got != tc.want {
				t.Errorf("Geohash(%v, %v, %d) = %q, want %q", tc.lat, tc.lng, tc.precision, got, tc.want)
			}
		})
	}
}

func TestGeohashDeterministic(t *testing.T) {
	a := Geohash(37.7749, -122.4194, 6)
	b := Geohash(37.7749, -122.4194, 6)
	if a != b {
		t.Errorf("same input produced different keys: %q vs %q", a, b)
	}
	if len(a) != 6 {
		t.Errorf("key length = %d, want 6", len(a))
	}
}

func TestGeohashPrecisionIsPrefix(t *testing.T) {
	long := Geohash(51.5074, -0.1278, 9)
	short := Geohash(51.5074, -0.1278, 5)
	if long[:5] != short {
		t.Errorf("precision 5 key %q is not a prefix of precision 9 key %q", short, long)
	}
}

func TestGeohashDistinguishesDistantPoints(t *testing.T) {
	london := Geohash(51.5074, -0.1278, 6)
	paris := Geohash(48.8566, 2.3522, 6)
	if london == paris {
		t.Errorf("distant points share key %q", london)
	}
}

func TestZoneFromLocationFallbackPrecision(t *testing.T) {
	for _, p := range []int{0, -3, 13} {
		key := ZoneFromLocation(37.0, -122.0, p)
		if len(key) != DefaultPrecision {
			t.Errorf("precision %d: key %q has length %d, want %d", p, key, len(key), DefaultPrecision)
		}
	}
}
