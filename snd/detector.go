package snd

import (
	"context"
	"math"
	"time"
)

// ReadFunc returns the next buffer of 16-bit mono samples. Implementations
// block until a full buffer is available.
type ReadFunc func() ([]int16, error)

// Detector finds the start and end of an utterance in a stream of fixed-size
// buffers by comparing buffer energy against an adaptive threshold.
type Detector struct {
	Threshold       float64       // Minimum energy considered speech
	Dynamic         bool          // Keep adapting the threshold while waiting for speech
	Damping         float64       // Per-second damping of threshold adjustments
	Ratio           float64       // Speech-to-ambient energy ratio
	PauseThreshold  time.Duration // Silence that ends a phrase
	PhraseThreshold time.Duration // Shortest speech accepted as a phrase
	NonSpeaking     time.Duration // Silence kept on both sides of the phrase

	bufferDuration time.Duration
}

func NewDetector(bufferDuration time.Duration) *Detector {
	return &Detector{
		Threshold:       300,
		Dynamic:         true,
		Damping:         0.15,
		Ratio:           1.5,
		PauseThreshold:  800 * time.Millisecond,
		PhraseThreshold: 300 * time.Millisecond,
		NonSpeaking:     500 * time.Millisecond,
		bufferDuration:  bufferDuration,
	}
}

// Energy is the root mean square of the samples.
func Energy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Adjust moves the threshold toward energy*Ratio.
func (d *Detector) Adjust(energy float64) {
	damping := math.Pow(d.Damping, d.bufferDuration.Seconds())
	target := energy * d.Ratio
	d.Threshold = d.Threshold*damping + target*(1-damping)
}

// Calibrate listens for duration and adapts the threshold to ambient noise.
func (d *Detector) Calibrate(
	ctx context.Context,
	read ReadFunc,
	duration time.Duration,
) error {
	var elapsed time.Duration
	for elapsed < duration {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, err := read()
		if err != nil {
			return err
		}
		elapsed += d.bufferDuration
		d.Adjust(Energy(buf))
	}
	return nil
}

func (d *Detector) buffers(dur time.Duration) int {
	return int((dur + d.bufferDuration - 1) / d.bufferDuration)
}

// Capture blocks until one phrase has been spoken and returns its samples,
// including up to NonSpeaking of silence before and after it.
func (d *Detector) Capture(ctx context.Context, read ReadFunc) ([]int16, error) {
	pauseBuffers := d.buffers(d.PauseThreshold)
	phraseBuffers := d.buffers(d.PhraseThreshold)
	nonSpeakingBuffers := d.buffers(d.NonSpeaking)

	for {
		var frames [][]int16

		// wait for speech, keeping a short pre-roll
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			buf, err := read()
			if err != nil {
				return nil, err
			}
			frames = append(frames, buf)
			if len(frames) > nonSpeakingBuffers {
				frames = frames[1:]
			}

			energy := Energy(buf)
			if energy > d.Threshold {
				break
			}
			if d.Dynamic {
				d.Adjust(energy)
			}
		}

		pauseCount, phraseCount := 0, 0
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			buf, err := read()
			if err != nil {
				return nil, err
			}
			frames = append(frames, buf)
			phraseCount++

			if Energy(buf) > d.Threshold {
				pauseCount = 0
			} else {
				pauseCount++
			}
			if pauseCount > pauseBuffers {
				break
			}
		}

		phraseCount -= pauseCount
		if phraseCount < phraseBuffers {
			continue
		}

		drop := pauseCount - nonSpeakingBuffers
		if drop > 0 && drop < len(frames) {
			frames = frames[:len(frames)-drop]
		}
		return flatten(frames), nil
	}
}

func flatten(frames [][]int16) []int16 {
	n := 0
	for _, f := range frames {
		n += len(f)
	}
	out := make([]int16, 0, n)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}
