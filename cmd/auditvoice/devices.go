package main

import (
	"io"
	"os"
	"sync"
)

// captureFrameMS is the capture frame duration handed to the transport.
const captureFrameMS = 20

// pcmCapture chunks a raw 16-bit mono PCM stream into fixed frames.
type pcmCapture struct {
	file      *os.File
	frames    chan []byte
	quit      chan struct{}
	closeOnce sync.Once
}

func openCapture(path string, sampleRate int) (*pcmCapture, error) {
	file := os.Stdin
	if path != "-" {
		var err error
		file, err = os.Open(path)
		if err != nil {
			return nil, err
		}
	}

	c := &pcmCapture{
		file:   file,
		frames: make(chan []byte, 32),
		quit:   make(chan struct{}),
	}
	frameBytes := sampleRate * captureFrameMS / 1000 * 2
	go c.read(frameBytes)
	return c, nil
}

func (c *pcmCapture) read(frameBytes int) {
	defer close(c.frames)
	for {
		buf := make([]byte, frameBytes)
		n, err := io.ReadFull(c.file, buf)
		if n > 0 {
			// The consumer may have stopped pulling frames; never block
			// on a send that nothing will receive.
			select {
			case c.frames <- buf[:n]:
			case <-c.quit:
				return
			}
		}
		if err != nil {
			// EOF, a closed file, or a broken pipe all mean the
			// stream is gone; stop capturing.
			return
		}
	}
}

func (c *pcmCapture) Frames() <-chan []byte { return c.frames }

func (c *pcmCapture) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.quit)
		if c.file != os.Stdin {
			err = c.file.Close()
		}
	})
	return err
}

// pcmPlayback writes assistant PCM straight through and reports it played as
// it is written. With a file or pipe sink there is no device latency to
// account for.
type pcmPlayback struct {
	mu        sync.Mutex
	file      *os.File
	played    chan int64
	closed    bool
	closeOnce sync.Once
}

func openPlayback(path string) (*pcmPlayback, error) {
	file := os.Stdout
	if path != "-" {
		var err error
		file, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, err
		}
	}
	return &pcmPlayback{
		file:   file,
		played: make(chan int64, 256),
	}, nil
}

func (p *pcmPlayback) Play(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	if _, err := p.file.Write(pcm); err != nil {
		return err
	}
	// Drop the mark if nobody is draining; offsets degrade but playback
	// must not stall.
	select {
	case p.played <- int64(len(pcm) / 2):
	default:
	}
	return nil
}

func (p *pcmPlayback) Played() <-chan int64 { return p.played }

// Stop is a no-op: writes are flushed as they arrive, so there is no queued
// audio to discard.
func (p *pcmPlayback) Stop() error { return nil }

func (p *pcmPlayback) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.played)
		if p.file != os.Stdout {
			err = p.file.Close()
		}
	})
	return err
}
