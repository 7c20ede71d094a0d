package encoder

import "io"

// capture feeds raw s16le PCM into ffmpeg when ffmpeg cannot open the
// input device itself.
type capture interface {
	Start(w io.Writer) error
	// Stop ends the pump and returns once nothing more will be written.
	Stop() error
	Close() error
}
