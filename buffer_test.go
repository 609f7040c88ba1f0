package dmx

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sameStorage(a, b *Buffer) bool {
	return a.data != nil && b.data != nil && &a.data[0] == &b.data[0]
}

func TestBufferZeroValue(t *testing.T) {
	var b Buffer

	assert.Equal(t, 0, b.Size())
	assert.Nil(t, b.Raw())
	assert.Equal(t, "", b.String())
	assert.Equal(t, byte(0), b.Channel(0))
	assert.True(t, b.Equal(NewBuffer()))
}

func TestBufferRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"single channel", []byte{42}},
		{"three channels", []byte{1, 2, 3}},
		{"full universe", bytesOf(MaxChannels, func(i int) byte { return byte(i) })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBufferFromBytes(tt.data)

			out := make([]byte, MaxChannels)
			n := b.Get(out)

			assert.Equal(t, len(tt.data), n)
			assert.Equal(t, tt.data, out[:n])
			assert.Equal(t, len(tt.data), b.Size())
		})
	}
}

func TestBufferGetSmallDestination(t *testing.T) {
	b := NewBufferFromBytes([]byte{10, 20, 30, 40})

	out := make([]byte, 2)
	n := b.Get(out)

	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{10, 20}, out)
}

func TestBufferConstructorCopiesInput(t *testing.T) {
	data := []byte{1, 2, 3}
	b := NewBufferFromBytes(data)
	data[0] = 99

	assert.Equal(t, byte(1), b.Channel(0))
}

func TestBufferTruncatesToUniverse(t *testing.T) {
	b := NewBufferFromBytes(make([]byte, MaxChannels+10))
	assert.Equal(t, MaxChannels, b.Size())

	s := NewBufferFromString(strings.Repeat("x", MaxChannels+1))
	assert.Equal(t, MaxChannels, s.Size())
	assert.Equal(t, byte('x'), s.Channel(MaxChannels-1))
}

func TestBufferCopyIsolation(t *testing.T) {
	x := NewBufferFromBytes([]byte{1, 2, 3})
	y := x.Copy()

	assert.True(t, sameStorage(x, y), "copy should share storage")
	assert.Equal(t, int32(2), x.refs.Load())

	y.SetChannel(0, 9)

	assert.Equal(t, byte(1), x.Channel(0))
	assert.Equal(t, byte(9), y.Channel(0))
	assert.False(t, sameStorage(x, y), "write should fork storage")
	assert.Equal(t, int32(1), x.refs.Load())
	assert.Equal(t, int32(1), y.refs.Load())
}

func TestBufferCopyIsolationAllMutators(t *testing.T) {
	mutators := map[string]func(b *Buffer){
		"Set":             func(b *Buffer) { b.Set([]byte{7, 7}) },
		"SetString":       func(b *Buffer) { b.SetString("ab") },
		"SetBuffer":       func(b *Buffer) { b.SetBuffer(NewBufferFromBytes([]byte{5})) },
		"SetFromString":   func(b *Buffer) { b.SetFromString("4,5,6,7") },
		"SetRangeToValue": func(b *Buffer) { b.SetRangeToValue(1, 200, 4) },
		"SetRange":        func(b *Buffer) { b.SetRange(0, []byte{8, 8}) },
		"SetChannel":      func(b *Buffer) { b.SetChannel(2, 100) },
		"Blackout":        func(b *Buffer) { b.Blackout() },
		"Reset":           func(b *Buffer) { b.Reset() },
		"HTPMerge":        func(b *Buffer) { b.HTPMerge(NewBufferFromBytes([]byte{255, 255, 255, 255})) },
	}

	for name, mutate := range mutators {
		t.Run(name, func(t *testing.T) {
			x := NewBufferFromBytes([]byte{1, 2, 3})
			y := x.Copy()

			mutate(y)

			assert.Equal(t, []byte{1, 2, 3}, x.Raw())
			assert.Equal(t, 3, x.Size())
		})
	}
}

func TestBufferAssign(t *testing.T) {
	a := NewBufferFromBytes([]byte{1, 2})
	b := NewBufferFromBytes([]byte{3, 4, 5})
	oldRefs := b.refs

	b.Assign(a)

	assert.True(t, sameStorage(a, b))
	assert.True(t, a.Equal(b))
	assert.Equal(t, int32(2), a.refs.Load())
	assert.Equal(t, int32(0), oldRefs.Load())

	a.SetChannel(0, 50)
	assert.Equal(t, byte(1), b.Channel(0))

	b.Assign(b)
	assert.Equal(t, []byte{1, 2}, b.Raw())
}

func TestBufferRelease(t *testing.T) {
	x := NewBufferFromBytes([]byte{1, 2, 3})
	y := x.Copy()

	y.Release()

	assert.Equal(t, 0, y.Size())
	assert.Equal(t, int32(1), x.refs.Load())

	// x is the only holder again, so writes happen in place
	before := &x.data[0]
	x.SetChannel(0, 4)
	assert.Same(t, before, &x.data[0])
}

func TestBufferReadsNeverDuplicate(t *testing.T) {
	x := NewBufferFromBytes([]byte{1, 2, 3})
	y := x.Copy()

	_ = x.Equal(y)
	_ = x.Raw()
	_ = x.String()
	_ = x.Channel(1)
	x.Get(make([]byte, 3))

	assert.True(t, sameStorage(x, y))
	assert.Equal(t, int32(2), x.refs.Load())
}

func TestBufferSetRejectsEmpty(t *testing.T) {
	b := NewBufferFromBytes([]byte{1, 2, 3})

	assert.False(t, b.Set(nil))
	assert.False(t, b.Set([]byte{}))
	assert.False(t, b.SetString(""))
	assert.False(t, b.SetBuffer(nil))
	assert.False(t, b.SetBuffer(NewBuffer()))
	assert.Equal(t, []byte{1, 2, 3}, b.Raw())
}

func TestBufferSetBuffer(t *testing.T) {
	src := NewBufferFromBytes([]byte{9, 8, 7})
	b := NewBufferFromBytes([]byte{1})

	require.True(t, b.SetBuffer(src))
	assert.True(t, b.Equal(src))
	assert.False(t, sameStorage(b, src), "SetBuffer copies bytes")
}

func TestBufferSetFromString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		ok     bool
		expect []byte
	}{
		{"plain", "10,20,30", true, []byte{10, 20, 30}},
		{"spaces", " 1, 2 ,3 ", true, []byte{1, 2, 3}},
		{"empty fields are zero", "5,,7", true, []byte{5, 0, 7}},
		{"bounds", "0,255", true, []byte{0, 255}},
		{"empty string", "", true, []byte{}},
		{"too large", "1,256", false, []byte{4, 4}},
		{"negative", "-1", false, []byte{4, 4}},
		{"not a number", "1,abc", false, []byte{4, 4}},
		{"hex", "0x10", false, []byte{4, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBufferFromBytes([]byte{4, 4})

			ok := b.SetFromString(tt.input)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, len(tt.expect), b.Size())
			assert.Equal(t, tt.expect, append([]byte{}, b.Raw()...))
		})
	}
}

func TestBufferSetFromStringDropsExtraChannels(t *testing.T) {
	fields := make([]string, MaxChannels+5)
	for i := range fields {
		fields[i] = "1"
	}
	b := NewBuffer()

	require.True(t, b.SetFromString(strings.Join(fields, ",")))
	assert.Equal(t, MaxChannels, b.Size())
}

func TestBufferStringRoundTrip(t *testing.T) {
	b := NewBuffer()
	require.True(t, b.SetFromString("10,20,30"))

	text := b.String()
	fields := strings.Split(text, ",")
	values := make([]byte, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		require.NoError(t, err)
		values = append(values, byte(v))
	}

	assert.Equal(t, []byte{10, 20, 30}, values)

	c := NewBuffer()
	require.True(t, c.SetFromString(text))
	assert.True(t, b.Equal(c))
}

func TestBufferSetRangeToValue(t *testing.T) {
	b := NewBufferFromBytes([]byte{1, 2, 3, 4, 5})

	require.True(t, b.SetRangeToValue(1, 9, 2))
	assert.Equal(t, []byte{1, 9, 9, 4, 5}, b.Raw())

	require.True(t, b.SetRangeToValue(4, 7, 3))
	assert.Equal(t, []byte{1, 9, 9, 4, 7, 7, 7}, b.Raw())

	require.True(t, b.SetRangeToValue(MaxChannels-1, 1, 1))
	assert.Equal(t, MaxChannels, b.Size())
	assert.Equal(t, byte(0), b.Channel(100), "gap is zero filled")
}

func TestBufferSetRangeToValueOutOfBounds(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		length int
	}{
		{"past end", MaxChannels - 2, 3},
		{"offset at end", MaxChannels, 1},
		{"negative offset", -1, 2},
		{"zero length", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBufferFromBytes([]byte{1, 2, 3})

			assert.False(t, b.SetRangeToValue(tt.offset, 9, tt.length))
			assert.Equal(t, []byte{1, 2, 3}, b.Raw())
		})
	}
}

func TestBufferSetRange(t *testing.T) {
	b := NewBufferFromBytes([]byte{1, 2, 3})

	require.True(t, b.SetRange(1, []byte{20, 30, 40}))
	assert.Equal(t, []byte{1, 20, 30, 40}, b.Raw())

	require.True(t, b.SetRange(6, []byte{60}))
	assert.Equal(t, []byte{1, 20, 30, 40, 0, 0, 60}, b.Raw())

	assert.False(t, b.SetRange(MaxChannels-1, []byte{1, 2}))
	assert.False(t, b.SetRange(0, nil))
	assert.Equal(t, 7, b.Size())
}

func TestBufferResetDoesNotLeakStaleChannels(t *testing.T) {
	b := NewBufferFromBytes([]byte{100, 100, 100, 100})
	b.Reset()
	require.Equal(t, 0, b.Size())

	b.SetChannel(3, 5)
	assert.Equal(t, []byte{0, 0, 0, 5}, b.Raw())

	b.Reset()
	b.SetRange(2, []byte{1})
	assert.Equal(t, []byte{0, 0, 1}, b.Raw())
}

func TestBufferSetChannel(t *testing.T) {
	b := NewBuffer()

	b.SetChannel(0, 10)
	b.SetChannel(2, 30)
	assert.Equal(t, []byte{10, 0, 30}, b.Raw())

	b.SetChannel(MaxChannels, 1)
	b.SetChannel(MaxChannels+100, 1)
	b.SetChannel(-1, 1)
	assert.Equal(t, 3, b.Size())

	b.SetChannel(MaxChannels-1, 255)
	assert.Equal(t, MaxChannels, b.Size())
	assert.Equal(t, byte(255), b.Channel(MaxChannels-1))
}

func TestBufferChannelOutOfRange(t *testing.T) {
	b := NewBufferFromBytes([]byte{1, 2})

	assert.Equal(t, byte(2), b.Channel(1))
	assert.Equal(t, byte(0), b.Channel(2))
	assert.Equal(t, byte(0), b.Channel(MaxChannels))
	assert.Equal(t, byte(0), b.Channel(-1))
}

func TestBufferBlackout(t *testing.T) {
	b := NewBufferFromBytes([]byte{1, 2, 3, 4, 5})

	require.True(t, b.Blackout())

	assert.Equal(t, 5, b.Size())
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, b.Raw())
}

func TestBufferReset(t *testing.T) {
	b := NewBufferFromBytes([]byte{1, 2, 3})
	b.Reset()
	assert.Equal(t, 0, b.Size())

	x := NewBufferFromBytes([]byte{1, 2, 3})
	y := x.Copy()
	y.Reset()
	assert.Equal(t, 0, y.Size())
	assert.Equal(t, 3, x.Size())
	assert.Equal(t, int32(1), x.refs.Load())
}

func TestBufferEqual(t *testing.T) {
	a := NewBufferFromBytes([]byte{1, 2})
	b := NewBufferFromBytes([]byte{1, 2})
	c := NewBufferFromBytes([]byte{1, 2, 0})
	d := NewBufferFromBytes([]byte{1, 3})

	assert.True(t, a.Equal(a), "reflexive")
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a), "symmetric")
	assert.False(t, a.Equal(c), "length sensitive")
	assert.False(t, c.Equal(a))
	assert.False(t, a.Equal(d))
	assert.True(t, NewBuffer().Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestBufferHTPMerge(t *testing.T) {
	tests := []struct {
		name   string
		base   []byte
		other  []byte
		expect []byte
	}{
		{"zero is identity", []byte{5, 0, 200}, []byte{0, 0, 0}, []byte{5, 0, 200}},
		{"highest wins", []byte{5, 0, 200}, []byte{0, 9, 0}, []byte{5, 9, 200}},
		{"other longer", []byte{1, 2}, []byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}},
		{"other shorter", []byte{1, 2, 3, 4}, []byte{9}, []byte{9, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBufferFromBytes(tt.base)
			other := NewBufferFromBytes(tt.other)

			require.True(t, b.HTPMerge(other))

			assert.Equal(t, tt.expect, b.Raw())
			assert.Equal(t, tt.other, other.Raw(), "other must not change")
		})
	}
}

func TestBufferHTPMergeCommutesInContent(t *testing.T) {
	a := NewBufferFromBytes([]byte{10, 200, 3})
	b := NewBufferFromBytes([]byte{50, 20, 3, 8})

	ab := a.Copy()
	ab.HTPMerge(b)
	ba := b.Copy()
	ba.HTPMerge(a)

	assert.True(t, ab.Equal(ba))
	assert.Equal(t, []byte{10, 200, 3}, a.Raw())
	assert.Equal(t, []byte{50, 20, 3, 8}, b.Raw())
}

func TestBufferHTPMergeIntoEmpty(t *testing.T) {
	var acc Buffer

	require.True(t, acc.HTPMerge(NewBufferFromBytes([]byte{1, 5})))
	require.True(t, acc.HTPMerge(NewBufferFromBytes([]byte{3, 2, 7})))
	require.True(t, acc.HTPMerge(nil))

	assert.Equal(t, []byte{3, 5, 7}, acc.Raw())
}

func TestBufferHTPMergeWithSharedPeer(t *testing.T) {
	a := NewBufferFromBytes([]byte{1, 100})
	b := a.Copy()

	require.True(t, a.HTPMerge(b))
	assert.Equal(t, []byte{1, 100}, a.Raw())

	require.True(t, a.HTPMerge(NewBufferFromBytes([]byte{50})))
	assert.Equal(t, []byte{50, 100}, a.Raw())
	assert.Equal(t, []byte{1, 100}, b.Raw())
}

func bytesOf(n int, f func(i int) byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = f(i)
	}
	return b
}
