package match

import (
	"fmt"
	"math"
	"strconv"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/resolve-cli/internal/merge"
	"github.com/sells-group/resolve-cli/internal/model"
)

// geoPoint extracts the record's coordinates as a WGS84 point. Returns
// false when either coordinate is missing; 0.0 is a valid coordinate and
// never counts as missing.
func geoPoint(rec model.SourceRecord, latField, lngField string) (*geom.Point, bool) {
	lat, ok := coordOf(rec.Fields[latField])
	if !ok {
		return nil, false
	}
	lng, ok := coordOf(rec.Fields[lngField])
	if !ok {
		return nil, false
	}
	return geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326), true
}

// coordOf coerces a raw field value into a coordinate.
func coordOf(v any) (float64, bool) {
	if merge.IsMissing(v) {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// geoNameKey builds the tier-2 composite key: normalized name plus
// coordinates rounded to the configured precision. The rounding is coarse
// enough to tolerate provider jitter. Returns false when the record lacks
// a name or coordinates.
func geoNameKey(rec model.SourceRecord, nameField, latField, lngField string, precision int) (string, bool) {
	raw, _ := rec.Fields[nameField].(string)
	name := NormalizeName(raw)
	if name == "" {
		return "", false
	}

	pt, ok := geoPoint(rec, latField, lngField)
	if !ok {
		return "", false
	}

	return fmt.Sprintf("%s|%s,%s",
		name,
		formatCoord(pt.Y(), precision),
		formatCoord(pt.X(), precision),
	), true
}

// formatCoord rounds a coordinate to the given number of decimal places
// and renders it in fixed notation so -0.0004 and 0.0004 both key as the
// same rounded cell boundary format.
func formatCoord(c float64, precision int) string {
	scale := math.Pow10(precision)
	rounded := math.Round(c*scale) / scale
	if rounded == 0 {
		rounded = 0 // normalize -0
	}
	return strconv.FormatFloat(rounded, 'f', precision, 64)
}
