package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/decoder"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type window struct {
	tokens []decoder.Token
	err    error
}

type fakeModel struct {
	mu      sync.Mutex
	script  []window
	streams []*fakeStream
	openErr error
}

func (m *fakeModel) NewStream(context.Context) (decoder.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	s := &fakeStream{model: m}
	m.streams = append(m.streams, s)
	return s, nil
}

func (m *fakeModel) fed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, s.fed)
	}
	return out
}

type fakeStream struct {
	model *fakeModel
	fed   int
}

func (s *fakeStream) Feed(samples []int16) {
	s.model.mu.Lock()
	defer s.model.mu.Unlock()
	s.fed += len(samples)
}

func (s *fakeStream) Finish(context.Context) ([]decoder.Token, error) {
	s.model.mu.Lock()
	defer s.model.mu.Unlock()
	if len(s.model.script) == 0 {
		return nil, nil
	}
	w := s.model.script[0]
	s.model.script = s.model.script[1:]
	return w.tokens, w.err
}

type routed struct {
	raw       string
	processed string
}

type fakeRouter struct {
	mu    sync.Mutex
	calls []routed
}

func (r *fakeRouter) Route(_ context.Context, raw string, processed string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, routed{raw: raw, processed: processed})
	return 2
}

type upper struct{}

func (upper) Process(text string) string { return strings.ToUpper(text) }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CarryoverBufferSize = 4000
	cfg.RefreshBufferThreshold = 16000
	cfg.GapDetectionMS = 200
	return cfg
}

// oneSecond queues 1000ms of audio in 100ms chunks and closes the channel.
func oneSecond() <-chan []int16 {
	ch := make(chan []int16, 10)
	for range 10 {
		ch <- make([]int16, 1600)
	}
	close(ch)
	return ch
}

func TestRunRoutesSafePhraseAndKeepsFixedCarryover(t *testing.T) {
	defer goleak.VerifyNone(t)

	model := &fakeModel{script: []window{{tokens: []decoder.Token{
		{Text: "h", Timestep: 5},
		{Text: "i", Timestep: 10},
	}}}}
	router := &fakeRouter{}
	driver := NewDriver(testConfig(), model, upper{}, router, nil)

	require.NoError(t, driver.Run(context.Background(), oneSecond()))

	require.Equal(t, []routed{{raw: "hi", processed: "HI"}}, router.calls)
	require.Equal(t, []int{16000, 4000}, model.fed())
	require.Equal(t, Stats{
		Windows:      1,
		Phrases:      1,
		Dispatches:   2,
		SamplesFed:   16000,
		CarrySamples: 4000,
	}, driver.Stats())
}

func TestRunCarriesUnfinishedPhraseFromGap(t *testing.T) {
	defer goleak.VerifyNone(t)

	model := &fakeModel{script: []window{{tokens: []decoder.Token{
		{Text: "a", Timestep: 5},
		{Text: "b", Timestep: 40},
	}}}}
	router := &fakeRouter{}
	driver := NewDriver(testConfig(), model, nil, router, nil)

	require.NoError(t, driver.Run(context.Background(), oneSecond()))

	require.Empty(t, router.calls)
	// phrase began at 780ms, so 16000 - 780*16 samples carry over
	require.Equal(t, []int{16000, 3520}, model.fed())
	require.Zero(t, driver.Stats().Phrases)
}

func TestRunKeepsFixedCarryoverOnDecodeError(t *testing.T) {
	defer goleak.VerifyNone(t)

	model := &fakeModel{script: []window{{err: errors.New("decoder offline")}}}
	router := &fakeRouter{}
	driver := NewDriver(testConfig(), model, nil, router, nil)

	require.NoError(t, driver.Run(context.Background(), oneSecond()))

	require.Empty(t, router.calls)
	require.Equal(t, []int{16000, 4000}, model.fed())
	require.Equal(t, int64(1), driver.Stats().DecodeErrors)
}

func TestRunSkipsSilentWindows(t *testing.T) {
	defer goleak.VerifyNone(t)

	model := &fakeModel{script: []window{{tokens: []decoder.Token{{Text: " ", Timestep: 3}}}}}
	router := &fakeRouter{}
	driver := NewDriver(testConfig(), model, nil, router, nil)

	require.NoError(t, driver.Run(context.Background(), oneSecond()))
	require.Empty(t, router.calls)
	require.Equal(t, int64(1), driver.Stats().Windows)
}

func TestRunWaitsForRefreshThreshold(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan []int16, 1)
	ch <- make([]int16, 8000)
	close(ch)

	model := &fakeModel{}
	driver := NewDriver(testConfig(), model, nil, &fakeRouter{}, nil)

	require.NoError(t, driver.Run(context.Background(), ch))
	require.Equal(t, []int{8000}, model.fed())
	require.Zero(t, driver.Stats().Windows)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	samples := make(chan []int16)
	driver := NewDriver(testConfig(), &fakeModel{}, nil, &fakeRouter{}, nil)

	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx, samples) }()

	samples <- make([]int16, 160)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
}

func TestRunFailsWhenStreamCannotOpen(t *testing.T) {
	driver := NewDriver(testConfig(), &fakeModel{openErr: errors.New("no model")}, nil, nil, nil)

	err := driver.Run(context.Background(), oneSecond())
	require.Error(t, err)
	require.Contains(t, err.Error(), "open decoder stream")
}
