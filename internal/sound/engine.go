// Package sound plays bell clips and vibration buzzes through PulseAudio.
package sound

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/playback"
)

// completionGrace covers output latency after the last sample is queued.
const completionGrace = 60 * time.Millisecond

var ErrReleased = errors.New("clip released")

// stream is the subset of a playback stream the engine drives.
type stream interface {
	Start()
	Stop()
	Close()
	Error() error
}

// sink opens a stream that plays samples once.
type sink interface {
	open(samples []int16, media string) (stream, error)
}

// Options configures an Engine.
type Options struct {
	AppName string
	Volume  float64
	Logger  *slog.Logger
}

// Engine opens bell clips and plays buzzes on one shared PulseAudio connection.
type Engine struct {
	volume float64
	logger *slog.Logger
	sink   sink

	cacheMu sync.Mutex
	cache   map[bell.Asset][]int16
}

// NewEngine builds an engine. The PulseAudio connection opens on first use.
func NewEngine(opts Options) *Engine {
	if opts.AppName == "" {
		opts.AppName = "debatebell"
	}
	return newEngine(&pulseSink{appName: opts.AppName}, opts)
}

func newEngine(s sink, opts Options) *Engine {
	if opts.Volume <= 0 || opts.Volume > 1 {
		opts.Volume = 1
	}
	return &Engine{
		volume: opts.Volume,
		logger: opts.Logger,
		sink:   s,
		cache:  make(map[bell.Asset][]int16),
	}
}

// Close drops the PulseAudio connection.
func (e *Engine) Close() error {
	if c, ok := e.sink.(interface{ close() }); ok {
		c.close()
	}
	return nil
}

// Open implements playback.Player.
func (e *Engine) Open(asset bell.Asset) (playback.Clip, error) {
	samples := e.samples(asset)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no bell sound for asset %s", asset)
	}
	return &clip{engine: e, samples: samples, media: "debatebell " + asset.String() + " bell"}, nil
}

func (e *Engine) samples(asset bell.Asset) []int16 {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if pcm, ok := e.cache[asset]; ok {
		return pcm
	}
	pcm := bellPCM(asset, e.volume)
	e.cache[asset] = pcm
	return pcm
}

// clip regenerates its stream on every Start/Rewind. Each stream gets a new
// generation; completion timers from older generations are ignored.
type clip struct {
	engine  *Engine
	samples []int16
	media   string

	mu         sync.Mutex
	stream     stream
	timer      *time.Timer
	gen        int
	released   bool
	onComplete func()
	onError    func(error)
}

func (c *clip) Start() error {
	return c.restart()
}

func (c *clip) Rewind() error {
	return c.restart()
}

func (c *clip) restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return ErrReleased
	}
	c.haltLocked()

	s, err := c.engine.sink.open(c.samples, c.media)
	if err != nil {
		return fmt.Errorf("open bell stream: %w", err)
	}
	s.Start()
	c.stream = s
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(durationForSamples(len(c.samples))+completionGrace, func() {
		c.ended(gen)
	})
	return nil
}

func (c *clip) ended(gen int) {
	c.mu.Lock()
	if c.released || gen != c.gen || c.stream == nil {
		c.mu.Unlock()
		return
	}
	streamErr := c.stream.Error()
	onComplete, onError := c.onComplete, c.onError
	c.mu.Unlock()

	if streamErr != nil {
		if onError != nil {
			onError(streamErr)
		}
		return
	}
	if onComplete != nil {
		onComplete()
	}
}

func (c *clip) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked()
}

func (c *clip) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked()
	c.released = true
}

func (c *clip) haltLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
		c.stream = nil
	}
	c.gen++
}

func (c *clip) OnComplete(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

func (c *clip) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// pulseSink plays through a lazily-connected PulseAudio client.
type pulseSink struct {
	appName string

	mu     sync.Mutex
	client *pulse.Client
}

func (p *pulseSink) connect() (*pulse.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(p.appName),
		pulse.ClientApplicationIconName("alarm-symbolic"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	p.client = client
	return client, nil
}

func (p *pulseSink) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

func (p *pulseSink) open(samples []int16, media string) (stream, error) {
	client, err := p.connect()
	if err != nil {
		return nil, err
	}

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	s, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName(media),
	)
	if err != nil {
		// a dead connection is rebuilt on the next open
		p.close()
		return nil, fmt.Errorf("create pulse playback stream: %w", err)
	}
	return s, nil
}
