package domain

import (
	"math"
	"strconv"
)

const (
	MinPercent = 0
	MaxPercent = 100
)

// LinkTransform maps one gesture value onto the actuator and lighting payloads.
type LinkTransform func(value float64) (actuator, lighting string)

// Forward drives the actuator forward and sets the lighting brightness to the
// same percentage.
func Forward(value float64) (string, string) {
	p := "f," + FormatPercent(value)
	return p, p
}

// Retreat drives the actuator backwards and dims the lighting inversely.
func Retreat(value float64) (string, string) {
	led := Clamp(MaxPercent-value, MinPercent, MaxPercent)
	return "b," + FormatPercent(value), "f," + FormatPercent(led)
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FormatPercent renders v in its shortest decimal form ("50", "12.5").
// Negative zero is written as "0".
func FormatPercent(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
