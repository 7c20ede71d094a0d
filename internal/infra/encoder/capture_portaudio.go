//go:build portaudio
// +build portaudio

package encoder

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/gordonklaus/portaudio"

	"micrecorder/internal/domain"
)

const framesPerBuffer = 1024

type portAudioCapture struct {
	stream *portaudio.Stream
	buffer []int16

	stop chan struct{}
	done chan struct{}
	once sync.Once
	err  error
}

func newCapture(p domain.EncodingParams) (capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	c := &portAudioCapture{
		buffer: make([]int16, framesPerBuffer*p.Channels),
	}
	stream, err := portaudio.OpenDefaultStream(
		p.Channels,
		0,
		float64(p.SampleRate),
		framesPerBuffer,
		c.buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	c.stream = stream
	return c, nil
}

func (c *portAudioCapture) Start(w io.Writer) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.pump(w)
	return nil
}

func (c *portAudioCapture) pump(w io.Writer) {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		if err := c.stream.Read(); err != nil {
			c.err = fmt.Errorf("reading from stream: %w", err)
			return
		}
		if err := binary.Write(w, binary.LittleEndian, c.buffer); err != nil {
			c.err = fmt.Errorf("writing pcm: %w", err)
			return
		}
	}
}

func (c *portAudioCapture) Stop() error {
	if c.done == nil {
		return nil
	}
	c.once.Do(func() { close(c.stop) })
	<-c.done
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("stopping stream: %w", err)
	}
	return c.err
}

func (c *portAudioCapture) Close() error {
	if c.done != nil {
		c.once.Do(func() { close(c.stop) })
		<-c.done
	}
	err := c.stream.Close()
	if termErr := portaudio.Terminate(); err == nil {
		err = termErr
	}
	return err
}
