package sound

import (
	"math"
	"time"

	"github.com/rbright/debatebell/internal/bell"
)

const sampleRate = 22050

// partial is one sine component of a struck bell.
type partial struct {
	ratio float64
	gain  float64
	decay time.Duration
}

// deskBell approximates a hand-struck desk bell: a bright fundamental with
// inharmonic overtones that die away faster.
var deskBell = []partial{
	{ratio: 1.0, gain: 0.55, decay: 260 * time.Millisecond},
	{ratio: 2.76, gain: 0.25, decay: 140 * time.Millisecond},
	{ratio: 5.40, gain: 0.12, decay: 80 * time.Millisecond},
	{ratio: 8.93, gain: 0.05, decay: 40 * time.Millisecond},
}

const (
	bellFundamentalHz = 2093.0
	strikeLength      = 420 * time.Millisecond
	strikeGap         = 190 * time.Millisecond
	buzzFrequencyHz   = 150.0
	buzzVolume        = 0.35
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

// bellPCM renders the clip for an asset: one strike per ring it represents.
func bellPCM(asset bell.Asset, volume float64) []int16 {
	strikes := 0
	switch asset {
	case bell.AssetSingle:
		strikes = 1
	case bell.AssetDouble:
		strikes = 2
	case bell.AssetTriple:
		strikes = 3
	}
	if strikes == 0 || volume <= 0 {
		return nil
	}

	step := samplesForDuration(strikeGap)
	strike := synthesizeStrike(volume)
	pcm := make([]float64, step*(strikes-1)+len(strike))
	for s := 0; s < strikes; s++ {
		offset := s * step
		for i, v := range strike {
			pcm[offset+i] += v
		}
	}
	return quantize(pcm)
}

func synthesizeStrike(volume float64) []float64 {
	n := samplesForDuration(strikeLength)
	attack := sampleRate / 500 // 2ms
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		v := 0.0
		for _, p := range deskBell {
			env := math.Exp(-t / p.decay.Seconds())
			v += p.gain * env * math.Sin(2*math.Pi*bellFundamentalHz*p.ratio*t)
		}
		if i < attack {
			v *= float64(i) / float64(attack)
		}
		out[i] = v * volume
	}
	return out
}

func quantize(pcm []float64) []int16 {
	out := make([]int16, len(pcm))
	for i, v := range pcm {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(math.Round(v * 32767))
	}
	return out
}

// patternPCM renders a vibration pattern as a low buzz: even entries are
// silence, odd entries are buzz.
func patternPCM(pattern []time.Duration, volume float64) []int16 {
	var pcm []int16
	for i, d := range pattern {
		if i%2 == 0 {
			pcm = append(pcm, make([]int16, samplesForDuration(d))...)
			continue
		}
		pcm = append(pcm, synthesizeTone(toneSpec{frequencyHz: buzzFrequencyHz, duration: d, volume: buzzVolume * volume})...)
	}
	return pcm
}

func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	attackRelease := n / 10
	maxRamp := sampleRate / 200 // 5ms
	if attackRelease > maxRamp {
		attackRelease = maxRamp
	}
	if attackRelease < 1 {
		attackRelease = 1
	}

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < attackRelease {
			envelope = float64(i) / float64(attackRelease)
		}
		releaseIndex := n - i - 1
		if releaseIndex < attackRelease {
			release := float64(releaseIndex) / float64(attackRelease)
			if release < envelope {
				envelope = release
			}
		}
		t := float64(i) / sampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * 32767))
	}

	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * sampleRate))
}

func durationForSamples(n int) time.Duration {
	return time.Duration(float64(n) / sampleRate * float64(time.Second))
}
