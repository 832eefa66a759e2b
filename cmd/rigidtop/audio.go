package main

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate   = beep.SampleRate(44100)
	tickDuration = 40 * time.Millisecond
	baseFreq     = 440.0
	maxSemitones = 24
)

// collisionTick plays a short sine blip whose pitch rises with the number
// of collisions that began during a frame.
type collisionTick struct {
	mixer  *beep.Mixer
	ready  bool
	muted  bool
	volume float64
}

func newCollisionTick() *collisionTick {
	return &collisionTick{mixer: &beep.Mixer{}, volume: 0.3}
}

func (c *collisionTick) init() error {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/20)); err != nil {
		return err
	}
	speaker.Play(c.mixer)
	c.ready = true
	return nil
}

func (c *collisionTick) play(collisions int) {
	if !c.ready || c.muted || collisions == 0 {
		return
	}

	sine, err := generators.SineTone(sampleRate, toneFrequency(collisions))
	if err != nil {
		return
	}
	tone := beep.Take(sampleRate.N(tickDuration), sine)
	loud := &effects.Volume{Streamer: tone, Base: 2, Volume: math.Log2(c.volume)}

	speaker.Lock()
	c.mixer.Add(loud)
	speaker.Unlock()
}

func (c *collisionTick) close() {
	if !c.ready {
		return
	}
	speaker.Lock()
	c.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	c.ready = false
}

// toneFrequency maps a collision count to a pitch one semitone per
// collision above A4, capped at two octaves.
func toneFrequency(collisions int) float64 {
	n := max(collisions-1, 0)
	n = min(n, maxSemitones)
	return baseFreq * math.Pow(2, float64(n)/12)
}
