package live

// CaptureDevice delivers microphone audio as 16-bit mono PCM frames.
type CaptureDevice interface {
	// Frames returns the channel of captured PCM frames. The channel is
	// closed when the device stops.
	Frames() <-chan []byte

	// Close stops capture and releases the device.
	Close() error
}

// PlaybackDevice consumes assistant PCM and reports playback progress.
type PlaybackDevice interface {
	// Play queues a PCM frame for output.
	Play(pcm []byte) error

	// Played returns the channel of sample counts as frames finish
	// playing.
	Played() <-chan int64

	// Stop discards any queued audio that has not been played yet.
	Stop() error

	// Close stops playback and releases the device.
	Close() error
}
