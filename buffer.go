package dmx

import (
	"bytes"
	"strconv"
	"strings"
	"sync/atomic"
)

// MaxChannels is the number of channels in one DMX512 universe
const MaxChannels = 512

// channelSeparator delimits channel values in the textual representation
const channelSeparator = ","

// Buffer holds one frame of DMX channel values.
//
// Buffers share their storage block until one of the holders writes to it.
// Copy and Assign are O(1): they share the block and bump a shared reference
// count. Every mutating method first checks that count and takes a private
// copy of the block when it is shared, so writes never leak into peers.
//
// The zero value is an empty buffer ready for use. A Buffer must not be
// copied by value; use Copy or Assign instead. A single Buffer has one
// logical owner at a time and is not safe for concurrent use.
type Buffer struct {
	noCopy noCopy

	data   []byte
	refs   *atomic.Int32
	length int
}

// noCopy lets go vet flag value copies of Buffer
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// NewBuffer returns an empty buffer
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewBufferFromBytes returns a buffer holding a private copy of data.
// Data beyond MaxChannels is ignored.
func NewBufferFromBytes(data []byte) *Buffer {
	b := &Buffer{}
	b.Set(data)
	return b
}

// NewBufferFromString returns a buffer holding the raw bytes of data
func NewBufferFromString(data string) *Buffer {
	b := &Buffer{}
	b.SetString(data)
	return b
}

// Copy returns a buffer sharing this buffer's storage.
// No bytes are copied until either buffer is modified.
func (b *Buffer) Copy() *Buffer {
	c := &Buffer{}
	c.share(b)
	return c
}

// Assign makes b share other's storage, dropping b's own reference
func (b *Buffer) Assign(other *Buffer) {
	if other == nil {
		b.Release()
		return
	}
	if b == other || (b.refs != nil && b.refs == other.refs) {
		b.length = other.length
		return
	}
	b.Release()
	b.share(other)
}

// Release drops this buffer's reference to its storage and leaves it empty
func (b *Buffer) Release() {
	if b.refs != nil {
		b.refs.Add(-1)
	}
	b.data = nil
	b.refs = nil
	b.length = 0
}

// Size returns the number of valid channels
func (b *Buffer) Size() int {
	return b.length
}

// Set replaces the content with data, truncated to MaxChannels.
// It returns false and leaves the buffer untouched when data is empty.
func (b *Buffer) Set(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	b.duplicateIfNeeded()
	b.length = copy(b.data, data)
	return true
}

// SetString replaces the content with the raw bytes of data
func (b *Buffer) SetString(data string) bool {
	if len(data) == 0 {
		return false
	}
	b.duplicateIfNeeded()
	b.length = copy(b.data, data)
	return true
}

// SetBuffer replaces the content with a copy of other's channels
func (b *Buffer) SetBuffer(other *Buffer) bool {
	if other == nil || other.length == 0 {
		return false
	}
	if b == other {
		return true
	}
	return b.Set(other.Raw())
}

// SetFromString parses comma separated decimal values such as "0,128,255".
// Empty fields are read as 0 and whitespace around a value is ignored.
// It returns false if any field is not an integer in 0-255, in which case
// the buffer is left as it was. Values past MaxChannels are dropped.
func (b *Buffer) SetFromString(text string) bool {
	if strings.TrimSpace(text) == "" {
		b.Reset()
		return true
	}

	var values [MaxChannels]byte
	fields := strings.Split(text, channelSeparator)
	n := 0
	for _, field := range fields {
		v, ok := parseChannelValue(field)
		if !ok {
			return false
		}
		if n < MaxChannels {
			values[n] = v
			n++
		}
	}

	b.duplicateIfNeeded()
	b.length = copy(b.data, values[:n])
	return true
}

func parseChannelValue(field string) (byte, bool) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(field, 10, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

// SetRangeToValue sets length channels starting at offset to value.
// It fails without changing anything if the range is empty or runs past
// MaxChannels. Channels between the current end and offset are zeroed.
func (b *Buffer) SetRangeToValue(offset int, value byte, length int) bool {
	if !validRange(offset, length) {
		return false
	}
	b.duplicateIfNeeded()
	b.extendTo(offset)
	fill := b.data[offset : offset+length]
	for i := range fill {
		fill[i] = value
	}
	if offset+length > b.length {
		b.length = offset + length
	}
	return true
}

// SetRange copies data into the buffer starting at offset.
// It follows the same bounds rule as SetRangeToValue.
func (b *Buffer) SetRange(offset int, data []byte) bool {
	if !validRange(offset, len(data)) {
		return false
	}
	b.duplicateIfNeeded()
	b.extendTo(offset)
	copy(b.data[offset:], data)
	if offset+len(data) > b.length {
		b.length = offset + len(data)
	}
	return true
}

func validRange(offset, length int) bool {
	return offset >= 0 && length > 0 && offset+length <= MaxChannels
}

// SetChannel sets a single channel. Channels outside the universe are
// silently ignored. Writing past the current end extends the buffer and
// zeroes any skipped channels.
func (b *Buffer) SetChannel(channel int, value byte) {
	if channel < 0 || channel >= MaxChannels {
		return
	}
	b.duplicateIfNeeded()
	b.extendTo(channel)
	b.data[channel] = value
	if channel >= b.length {
		b.length = channel + 1
	}
}

// Get copies channels into out and returns how many were copied,
// which is the smaller of len(out) and Size.
func (b *Buffer) Get(out []byte) int {
	return copy(out, b.Raw())
}

// Channel returns the value of a channel, or 0 when the channel is past
// the end of the buffer
func (b *Buffer) Channel(channel int) byte {
	if channel < 0 || channel >= b.length {
		return 0
	}
	return b.data[channel]
}

// Raw returns the channel values without copying.
//
// The slice aliases the buffer's storage: it must be treated as read only
// and must not be kept across a call that modifies this buffer or any buffer
// sharing its storage.
func (b *Buffer) Raw() []byte {
	if b.data == nil {
		return nil
	}
	return b.data[:b.length:b.length]
}

// String renders the channels as comma separated decimal values,
// the format read by SetFromString
func (b *Buffer) String() string {
	var sb strings.Builder
	sb.Grow(b.length * 4)
	for i, v := range b.Raw() {
		if i > 0 {
			sb.WriteString(channelSeparator)
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	return sb.String()
}

// Blackout sets every channel in the buffer to zero, keeping its size
func (b *Buffer) Blackout() bool {
	b.duplicateIfNeeded()
	clear(b.data[:b.length])
	return true
}

// Reset marks the buffer as holding no data. Storage is kept when this
// buffer is its only holder.
func (b *Buffer) Reset() {
	if b.refs != nil && b.refs.Load() > 1 {
		b.Release()
		return
	}
	b.length = 0
}

// Equal reports whether both buffers hold the same channels
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil {
		return b.length == 0
	}
	if b.length != other.length {
		return false
	}
	return bytes.Equal(b.Raw(), other.Raw())
}

// HTPMerge merges other into b using highest takes precedence: every
// channel becomes the larger of the two values. The result is as long as
// the longer buffer, with missing channels counting as zero. other is not
// modified.
func (b *Buffer) HTPMerge(other *Buffer) bool {
	if other == nil || other.length == 0 {
		return true
	}
	src := other.Raw()
	b.duplicateIfNeeded()

	shared := b.length
	if len(src) < shared {
		shared = len(src)
	}
	for i := 0; i < shared; i++ {
		if src[i] > b.data[i] {
			b.data[i] = src[i]
		}
	}
	if len(src) > b.length {
		copy(b.data[b.length:], src[b.length:])
		b.length = len(src)
	}
	return true
}

func (b *Buffer) share(other *Buffer) {
	if other.refs == nil {
		b.data = nil
		b.refs = nil
		b.length = 0
		return
	}
	other.refs.Add(1)
	b.data = other.data
	b.refs = other.refs
	b.length = other.length
}

// duplicateIfNeeded makes sure b is the only holder of its storage,
// allocating the storage on first use
func (b *Buffer) duplicateIfNeeded() {
	if b.refs == nil {
		b.data = make([]byte, MaxChannels)
		b.refs = &atomic.Int32{}
		b.refs.Store(1)
		b.length = 0
		return
	}
	if b.refs.Load() == 1 {
		return
	}

	data := make([]byte, MaxChannels)
	copy(data, b.data[:b.length])
	b.refs.Add(-1)

	b.data = data
	b.refs = &atomic.Int32{}
	b.refs.Store(1)
}

// extendTo zeroes channels from the current end up to end so stale bytes
// left behind by Reset never reappear
func (b *Buffer) extendTo(end int) {
	if end > b.length {
		clear(b.data[b.length:end])
	}
}
