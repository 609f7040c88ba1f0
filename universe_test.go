package dmx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	mu     sync.Mutex
	name   string
	frames []string
	err    error
}

func (f *fakeOutput) WriteDMX(_ context.Context, frame *Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, frame.String())
	return nil
}

func (f *fakeOutput) Description() string { return f.name }

func (f *fakeOutput) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...)
}

type fakeInput struct {
	name  string
	frame string
}

func (f *fakeInput) ReadDMX() *Buffer {
	b := NewBuffer()
	b.SetFromString(f.frame)
	return b
}

func (f *fakeInput) Description() string { return f.name }

func newTestUniverse(t *testing.T, opts ...UniverseOption) *Universe {
	t.Helper()
	u, err := NewUniverse(1, opts...)
	require.NoError(t, err)
	return u
}

func TestNewUniverse(t *testing.T) {
	u, err := NewUniverse(7)
	require.NoError(t, err)
	assert.Equal(t, 7, u.ID())
	assert.Equal(t, "Universe 7", u.Name())
	assert.Equal(t, MergeHTP, u.MergeMode())

	u, err = NewUniverse(0, WithName("stage"), WithMergeMode(MergeLTP))
	require.NoError(t, err)
	assert.Equal(t, "stage", u.Name())
	assert.Equal(t, MergeLTP, u.MergeMode())
}

func TestNewUniverseInvalid(t *testing.T) {
	_, err := NewUniverse(-1)
	assert.ErrorIs(t, err, ErrInvalidUniverse)

	_, err = NewUniverse(MaxUniverse + 1)
	assert.ErrorIs(t, err, ErrInvalidUniverse)

	_, err = NewUniverse(1, WithMergeMode(MergeMode(9)))
	assert.ErrorIs(t, err, ErrInvalidMergeMode)
}

func TestParseMergeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    MergeMode
		wantErr bool
	}{
		{"htp", MergeHTP, false},
		{"HTP", MergeHTP, false},
		{"", MergeHTP, false},
		{" ltp ", MergeLTP, false},
		{"max", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMergeMode(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidMergeMode, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, got, mustParse(t, got.String()))
	}
}

func mustParse(t *testing.T, s string) MergeMode {
	t.Helper()
	m, err := ParseMergeMode(s)
	require.NoError(t, err)
	return m
}

func TestUniverseHTPFrame(t *testing.T) {
	u := newTestUniverse(t)
	assert.Equal(t, 0, u.Frame().Size())

	u.SetSource("console", NewBufferFromBytes([]byte{10, 200, 0}))
	u.SetSource("fader", NewBufferFromBytes([]byte{50, 100, 0, 7}))

	assert.Equal(t, "50,200,0,7", u.Frame().String())
	assert.Equal(t, []string{"console", "fader"}, u.Sources())
}

func TestUniverseLTPFrame(t *testing.T) {
	u := newTestUniverse(t, WithMergeMode(MergeLTP))

	u.SetSource("a", NewBufferFromBytes([]byte{255, 255}))
	u.SetSource("b", NewBufferFromBytes([]byte{1}))
	assert.Equal(t, "1", u.Frame().String())

	u.SetSource("a", NewBufferFromBytes([]byte{9, 9, 9}))
	assert.Equal(t, "9,9,9", u.Frame().String())
}

func TestUniverseSourceIsolation(t *testing.T) {
	u := newTestUniverse(t)
	frame := NewBufferFromBytes([]byte{1, 2, 3})
	u.SetSource("a", frame)

	frame.SetChannel(0, 99)
	got, err := u.Source("a")
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", got.String())

	// modifying the merged result leaves the source alone
	merged := u.Frame()
	merged.Blackout()
	assert.Equal(t, "1,2,3", u.Frame().String())
}

func TestUniverseRemoveSource(t *testing.T) {
	u := newTestUniverse(t)
	u.SetSource("a", NewBufferFromBytes([]byte{1}))

	require.NoError(t, u.RemoveSource("a"))
	assert.Empty(t, u.Sources())

	err := u.RemoveSource("a")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = u.Source("a")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestUniverseBlackout(t *testing.T) {
	u := newTestUniverse(t)
	u.SetSource("a", NewBufferFromBytes([]byte{255, 255}))

	u.Blackout()
	assert.True(t, u.InBlackout())
	frame := u.Frame()
	assert.Equal(t, MaxChannels, frame.Size())
	for i := 0; i < MaxChannels; i++ {
		require.Zero(t, frame.Channel(i))
	}

	u.ClearBlackout()
	assert.False(t, u.InBlackout())
	assert.Equal(t, "255,255", u.Frame().String())
}

func TestUniverseRefreshWritesOnChange(t *testing.T) {
	u := newTestUniverse(t)
	out := &fakeOutput{name: "out"}
	u.AddOutput(out)
	ctx := context.Background()

	u.SetSource("a", NewBufferFromBytes([]byte{1, 2}))
	require.NoError(t, u.Refresh(ctx))
	require.NoError(t, u.Refresh(ctx))
	assert.Equal(t, []string{"1,2"}, out.written())

	u.SetSource("b", NewBufferFromBytes([]byte{0, 5}))
	require.NoError(t, u.Refresh(ctx))
	assert.Equal(t, []string{"1,2", "1,5"}, out.written())
}

func TestUniverseRefreshAll(t *testing.T) {
	u := newTestUniverse(t, WithRefreshAll(true))
	out := &fakeOutput{name: "out"}
	u.AddOutput(out)
	u.SetSource("a", NewBufferFromBytes([]byte{3}))

	for i := 0; i < 3; i++ {
		require.NoError(t, u.Refresh(context.Background()))
	}
	assert.Equal(t, []string{"3", "3", "3"}, out.written())
}

func TestUniverseRefreshReadsInputs(t *testing.T) {
	u := newTestUniverse(t)
	in := &fakeInput{name: "ArtNet Universe 1", frame: "0,100"}
	out := &fakeOutput{name: "out"}
	u.AddInput(in)
	u.AddOutput(out)
	u.SetSource("local", NewBufferFromBytes([]byte{50, 50, 50}))

	require.NoError(t, u.Refresh(context.Background()))
	assert.Equal(t, []string{"50,100,50"}, out.written())
	assert.Equal(t, []string{"ArtNet Universe 1", "local"}, u.Sources())

	// an input with no data drops out of the merge
	in.frame = ""
	require.NoError(t, u.Refresh(context.Background()))
	assert.Equal(t, []string{"local"}, u.Sources())
	assert.Equal(t, []string{"50,100,50", "50,50,50"}, out.written())
}

func TestUniverseRefreshJoinsErrors(t *testing.T) {
	u := newTestUniverse(t)
	errA := errors.New("a broke")
	errB := errors.New("b broke")
	good := &fakeOutput{name: "good"}
	u.AddOutput(&fakeOutput{name: "a", err: errA})
	u.AddOutput(good)
	u.AddOutput(&fakeOutput{name: "b", err: errB})
	u.SetSource("s", NewBufferFromBytes([]byte{1}))

	err := u.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []string{"1"}, good.written())

	// failed frames are retried even though nothing changed
	_ = u.Refresh(context.Background())
	assert.Equal(t, []string{"1", "1"}, good.written())
}

func TestUniverseRun(t *testing.T) {
	u := newTestUniverse(t)
	out := &fakeOutput{name: "out"}
	u.AddOutput(out)
	u.SetSource("a", NewBufferFromBytes([]byte{42}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := u.Run(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"42"}, out.written())
}

func TestUniverseConcurrentUse(t *testing.T) {
	u := newTestUniverse(t)
	u.AddOutput(&fakeOutput{name: "out"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			frame := NewBufferFromBytes([]byte{byte(i)})
			for j := 0; j < 50; j++ {
				frame.SetChannel(j%4, byte(i+j))
				u.SetSource("src", frame)
				_ = u.Frame()
				_ = u.Refresh(context.Background())
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []string{"src"}, u.Sources())
}
