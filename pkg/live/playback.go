package live

import "sync"

// DefaultSampleRate is the PCM sample rate the realtime API streams at.
const DefaultSampleRate = 24000

// PlaybackBuffer accounts for assistant audio belonging to the current
// response item. Audio is 16-bit mono PCM, so a delta of n bytes is n/2
// samples. Written counts samples handed to the playback device; played
// counts samples the device has finished, clamped to written.
type PlaybackBuffer struct {
	mu         sync.Mutex
	sampleRate int
	itemID     string
	written    int64
	played     int64
}

// NewPlaybackBuffer creates a buffer for the given sample rate.
func NewPlaybackBuffer(sampleRate int) *PlaybackBuffer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &PlaybackBuffer{sampleRate: sampleRate}
}

// Write records a PCM delta for the given response item. A new item id
// starts a fresh accounting window.
func (b *PlaybackBuffer) Write(itemID string, pcm []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if itemID != b.itemID {
		b.itemID = itemID
		b.written = 0
		b.played = 0
	}
	b.written += int64(len(pcm) / 2)
}

// Advance records samples the playback device finished playing.
func (b *PlaybackBuffer) Advance(samples int64) {
	if samples <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.played += samples
	if b.played > b.written {
		b.played = b.written
	}
}

// ItemID returns the response item currently being accounted.
func (b *PlaybackBuffer) ItemID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.itemID
}

// WrittenMS returns milliseconds of audio handed to the device.
func (b *PlaybackBuffer) WrittenMS() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.toMS(b.written)
}

// PlayedMS returns milliseconds of audio actually heard.
func (b *PlaybackBuffer) PlayedMS() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.toMS(b.played)
}

// Cut returns the current item and its played offset in milliseconds and
// drops the unplayed remainder. The returned offset is always in
// [0, WrittenMS]. Used on barge-in to tell the server where playback
// actually stopped.
func (b *PlaybackBuffer) Cut() (itemID string, playedMS int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	itemID = b.itemID
	playedMS = b.toMS(b.played)
	b.itemID = ""
	b.written = 0
	b.played = 0
	return itemID, playedMS
}

// Reset clears the accounting window.
func (b *PlaybackBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.itemID = ""
	b.written = 0
	b.played = 0
}

func (b *PlaybackBuffer) toMS(samples int64) int64 {
	return samples * 1000 / int64(b.sampleRate)
}
