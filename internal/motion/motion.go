// Package motion holds the pure kinematics of a scrolling item: how far it
// travels, how long that takes, and where it is at a given instant.
//
// Distances are in display units (pixels for the browser overlay, cells
// for the terminal), speeds in units per second.
package motion

import (
	"math"
	"time"
)

// SpeedFactor is the number of seconds of travel per unit of distance
// before the random factor is applied. Larger values scroll slower.
const SpeedFactor = 0.009

// Bounds of the random factor applied to every duration.
const (
	MinFactor = 0.7
	MaxFactor = 1.0
)

// minDuration keeps very short items from producing a zero duration.
const minDuration = time.Second

// TotalDistance is the distance an item must travel to fully leave the
// display: its own width plus the display width.
func TotalDistance(itemWidth, displayWidth float64) float64 {
	return itemWidth + displayWidth
}

// Factor maps a uniform sample u in [0, 1) onto [MinFactor, MaxFactor).
func Factor(u float64) float64 {
	return MinFactor + u*(MaxFactor-MinFactor)
}

// Duration returns floor(totalDistance * SpeedFactor * factor) seconds,
// never less than one second.
func Duration(totalDistance, factor float64) time.Duration {
	seconds := math.Floor(totalDistance * SpeedFactor * factor)
	d := time.Duration(seconds) * time.Second
	if d < minDuration {
		return minDuration
	}
	return d
}

// Speed returns the speed that covers totalDistance in d.
func Speed(totalDistance float64, d time.Duration) float64 {
	return totalDistance / d.Seconds()
}

// Position returns the distance travelled between start and now at speed.
// The caller clamps the result with [Clamp].
func Position(now, start time.Time, speed float64) float64 {
	return now.Sub(start).Seconds() * speed
}

// Remaining returns the time needed to cover what is left of totalDistance
// after rolled has already been travelled.
func Remaining(totalDistance, rolled, speed float64) time.Duration {
	seconds := (totalDistance - rolled) / speed
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Clamp bounds a travelled distance to [0, totalDistance].
func Clamp(d, totalDistance float64) float64 {
	return math.Max(0, math.Min(d, totalDistance))
}
