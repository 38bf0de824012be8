package g726

import (
	"math"
	"time"
)

func bytesPerSample(bitDepth int) int {
	return (bitDepth-1)/8 + 1
}

// frameCountForDuration maps a duration to a frame count by rounding to the
// nearest frame.
func frameCountForDuration(dur time.Duration, sampleRate uint32) int {
	return int(math.Round(dur.Seconds() * float64(sampleRate)))
}

func durationForFrames(frames uint64, sampleRate uint32) time.Duration {
	if sampleRate == 0 {
		return 0
	}

	sec := float64(frames) / float64(sampleRate)

	return time.Duration(sec * float64(time.Second))
}
