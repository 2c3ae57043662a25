package domain

import (
	"strings"
	"time"
)

// InboxLine is one decoded text line received from a peripheral.
type InboxLine struct {
	Role Role
	Text string
	Time time.Time
}

const waveSpawnToken = "WAVE_SPAWN"

// WaveSpawn is the informational event the lighting firmware prints when a
// new wave starts travelling along the strip.
type WaveSpawn struct {
	N     string
	Speed string
	Phase string
}

// ParseWaveSpawn recognizes "WAVE_SPAWN n=<n> speed=<s> phase=<p>". Missing
// keys are reported as "?".
func ParseWaveSpawn(text string) (WaveSpawn, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || fields[0] != waveSpawnToken {
		return WaveSpawn{}, false
	}

	values := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		values[key] = value
	}

	get := func(key string) string {
		if v, ok := values[key]; ok && v != "" {
			return v
		}
		return "?"
	}

	return WaveSpawn{N: get("n"), Speed: get("speed"), Phase: get("phase")}, true
}
