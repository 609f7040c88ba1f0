package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-dmx"
)

func TestStorePutGet(t *testing.T) {
	s := NewStore()
	frame := dmx.NewBufferFromBytes([]byte{255, 0, 128})
	require.NoError(t, s.Put("warm", 2, frame))

	// the store keeps its own copy
	frame.SetChannel(0, 1)

	sc, err := s.Get("warm")
	require.NoError(t, err)
	assert.Equal(t, "warm", sc.Name)
	assert.Equal(t, 2, sc.Universe)
	assert.Equal(t, "255,0,128", sc.Frame.String())

	sc.Frame.Blackout()
	again, _ := s.Get("warm")
	assert.Equal(t, "255,0,128", again.Frame.String())
}

func TestStorePutInvalid(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Put("  ", 0, dmx.NewBuffer()), ErrInvalidScene)
	assert.ErrorIs(t, s.Put("x", 0, nil), ErrInvalidScene)
	assert.ErrorIs(t, s.Put("x", -1, dmx.NewBuffer()), ErrInvalidScene)
	assert.Empty(t, s.Names())
}

func TestStoreDelete(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put("a", 0, dmx.NewBufferFromBytes([]byte{1})))
	require.NoError(t, s.Put("b", 0, dmx.NewBufferFromBytes([]byte{2})))

	require.NoError(t, s.Delete("a"))
	assert.Equal(t, []string{"b"}, s.Names())

	assert.ErrorIs(t, s.Delete("a"), ErrSceneNotFound)
	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrSceneNotFound)
}

func TestStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scenes.yaml")

	s := NewStore()
	require.NoError(t, s.Put("zeta", 3, dmx.NewBufferFromBytes([]byte{0, 0, 7})))
	require.NoError(t, s.Put("alpha", 1, dmx.NewBufferFromBytes([]byte{10, 20})))
	require.NoError(t, s.Save(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "10,20")

	loaded := NewStore()
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, []string{"alpha", "zeta"}, loaded.Names())

	sc, err := loaded.Get("zeta")
	require.NoError(t, err)
	assert.Equal(t, 3, sc.Universe)
	assert.Equal(t, "0,0,7", sc.Frame.String())
}

func TestLoadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.yaml")
	content := `scenes:
  - name: warm
    universe: 1
    channels: "255, 180,40"
  - name: empty
    channels: ""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := NewStore()
	require.NoError(t, s.Load(path))

	warm, err := s.Get("warm")
	require.NoError(t, err)
	assert.Equal(t, "255,180,40", warm.Frame.String())

	empty, err := s.Get("empty")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Universe)
	assert.Equal(t, 0, empty.Frame.Size())
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad channel value", "scenes:\n  - name: x\n    channels: \"1,256\"\n"},
		{"missing name", "scenes:\n  - channels: \"1\"\n"},
		{"duplicate", "scenes:\n  - name: x\n  - name: x\n"},
		{"bad universe", "scenes:\n  - name: x\n    universe: 40000\n"},
		{"not yaml", "scenes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenes.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			s := NewStore()
			require.NoError(t, s.Put("keep", 0, dmx.NewBufferFromBytes([]byte{1})))

			assert.Error(t, s.Load(path))
			assert.Equal(t, []string{"keep"}, s.Names(), "failed load must not change the store")
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, s.Names())
}
