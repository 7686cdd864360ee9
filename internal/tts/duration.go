package tts

import (
	"strconv"
	"strings"
)

// PlaceholderDuration is used when no estimate can be made.
const PlaceholderDuration = 300

// EstimateDuration derives seconds from the byte size and the constant
// bitrate encoded in an output format like "mp3_44100_128". It is an
// approximation; no audio frames are inspected.
func EstimateDuration(size int64, outputFormat string) int {
	if size <= 0 {
		return PlaceholderDuration
	}
	parts := strings.Split(outputFormat, "_")
	if len(parts) != 3 || parts[0] != "mp3" {
		return PlaceholderDuration
	}
	kbps, err := strconv.Atoi(parts[2])
	if err != nil || kbps <= 0 {
		return PlaceholderDuration
	}
	seconds := size * 8 / int64(kbps*1000)
	if seconds < 1 {
		return 1
	}
	return int(seconds)
}
