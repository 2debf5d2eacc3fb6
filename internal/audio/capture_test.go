package audio

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertSamplesScalesAndClamps(t *testing.T) {
	got := ConvertSamples([]float32{0, 0.5, -0.5, 1, -1, 1.7, -3, float32(math.NaN())})
	require.Equal(t, []int16{0, 16383, -16383, 32767, -32767, 32767, -32768, 0}, got)
}

func TestConvertSamplesEmpty(t *testing.T) {
	require.Empty(t, ConvertSamples(nil))
}

func TestCaptureOnSamplesEnqueuesConvertedChunk(t *testing.T) {
	capture := newCapture(Device{ID: "mic"}, nil)

	n, err := capture.onSamples([]float32{0.5, -1})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, int64(2), capture.SamplesCaptured())

	require.Equal(t, []int16{16383, -32767}, <-capture.Samples())
}

func TestCaptureOnSamplesDropsWhenQueueFull(t *testing.T) {
	capture := newCapture(Device{ID: "mic"}, nil)
	capture.samples = make(chan []int16, 1)

	_, err := capture.onSamples([]float32{0.1, 0.2})
	require.NoError(t, err)
	n, err := capture.onSamples([]float32{0.3, 0.4, 0.5})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, int64(2), capture.SamplesCaptured())
	require.Equal(t, int64(3), capture.SamplesDropped())
}

func TestCaptureOnSamplesReturnsEOFWhenStopped(t *testing.T) {
	capture := newCapture(Device{ID: "mic"}, nil)
	require.NoError(t, capture.Stop())

	n, err := capture.onSamples([]float32{0.1})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, capture.SamplesCaptured())
}

func TestCaptureStopClosesSamplesOnce(t *testing.T) {
	capture := newCapture(Device{ID: "mic-1", Description: "Mic"}, nil)
	require.Equal(t, "mic-1", capture.Device().ID)

	capture.Close()
	require.NoError(t, capture.Stop())
	_, ok := <-capture.Samples()
	require.False(t, ok)
}
