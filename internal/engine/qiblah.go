package engine

import (
	"math"

	"github.com/tartampluch/go-noor/internal/config"
)

// QiblahBearing returns the initial great-circle bearing from loc to the
// Kaaba, in degrees clockwise from true north, within [0, 360).
func QiblahBearing(loc Location) float64 {
	phi1 := loc.Lat * math.Pi / 180
	phi2 := config.KaabaLat * math.Pi / 180
	dLambda := (config.KaabaLng - loc.Lng) * math.Pi / 180

	y := math.Sin(dLambda)
	x := math.Cos(phi1)*math.Tan(phi2) - math.Sin(phi1)*math.Cos(dLambda)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}
