package tdf

import "math"

const earthRadiusMetres = 6371000

type Location struct {
	Type        string    `json:"-" groups:"basic"`
	Coordinates []float64 `json:"coordinates" groups:"basic"`
}

func (l *Location) Longitude() float64 {
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	return l.Coordinates[1]
}

// Distance returns the great-circle distance in metres between two locations
func (l *Location) Distance(other *Location) float64 {
	lat1 := l.Coordinates[1] * math.Pi / 180
	lat2 := other.Coordinates[1] * math.Pi / 180
	deltaLat := (other.Coordinates[1] - l.Coordinates[1]) * math.Pi / 180
	deltaLon := (other.Coordinates[0] - l.Coordinates[0]) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}

// DistanceFromLine returns the distance from this location to the closest
// point on the line segment between a & b, along with how far along the
// segment that closest point sits (0 at a, 1 at b)
func (l *Location) DistanceFromLine(a Location, b Location) (float64, float64) {
	A := l.Coordinates[0] - a.Coordinates[0]
	B := l.Coordinates[1] - a.Coordinates[1]
	C := b.Coordinates[0] - a.Coordinates[0]
	D := b.Coordinates[1] - a.Coordinates[1]

	dot := A*C + B*D
	lenSq := C*C + D*D

	param := -1.0
	if lenSq != 0 {
		param = dot / lenSq
	}

	var xx, yy float64

	if param < 0 {
		xx = a.Coordinates[0]
		yy = a.Coordinates[1]
	} else if param > 1 {
		xx = b.Coordinates[0]
		yy = b.Coordinates[1]
	} else {
		xx = a.Coordinates[0] + param*C
		yy = a.Coordinates[1] + param*D
	}

	closest := Location{Type: "Point", Coordinates: []float64{xx, yy}}
	fraction := math.Max(0, math.Min(1, param))

	return l.Distance(&closest), fraction
}
