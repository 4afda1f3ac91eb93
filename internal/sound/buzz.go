package sound

import (
	"fmt"
	"sync"
	"time"
)

// Buzzer renders vibration patterns as a low tone. It is the
// vibration channel on machines without a vibration motor.
type Buzzer struct {
	engine *Engine

	mu     sync.Mutex
	active stream
	timer  *time.Timer
}

// NewBuzzer builds a buzzer sharing the engine's connection.
func (e *Engine) NewBuzzer() *Buzzer {
	return &Buzzer{engine: e}
}

// Vibrate plays pattern, replacing anything already buzzing.
func (b *Buzzer) Vibrate(pattern []time.Duration) error {
	pcm := patternPCM(pattern, b.engine.volume)
	if len(pcm) == 0 {
		return nil
	}
	return b.play(pcm, "debatebell vibrate")
}

// Cancel silences the current buzz.
func (b *Buzzer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.haltLocked()
}

func (b *Buzzer) play(pcm []int16, media string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.haltLocked()

	s, err := b.engine.sink.open(pcm, media)
	if err != nil {
		return fmt.Errorf("open buzz stream: %w", err)
	}
	s.Start()
	b.active = s
	b.timer = time.AfterFunc(durationForSamples(len(pcm))+completionGrace, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.active == s {
			b.haltLocked()
		}
	})
	return nil
}

func (b *Buzzer) haltLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.active != nil {
		b.active.Stop()
		b.active.Close()
		b.active = nil
	}
}
