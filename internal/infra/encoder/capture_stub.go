//go:build !portaudio
// +build !portaudio

package encoder

import (
	"fmt"

	"micrecorder/internal/domain"
)

func newCapture(_ domain.EncodingParams) (capture, error) {
	return nil, fmt.Errorf("portaudio capture not available: rebuild with -tags portaudio")
}
