// Package scene stores named DMX frames and persists them as YAML.
//
// A scene file looks like:
//
//	scenes:
//	  - name: warm
//	    universe: 1
//	    channels: "255,180,40"
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/allbin/go-dmx"
)

var (
	ErrSceneNotFound = errors.New("scene not found")
	ErrInvalidScene  = errors.New("invalid scene")
)

// Scene is a named frame for one universe
type Scene struct {
	Name     string
	Universe int
	Frame    *dmx.Buffer
}

type record struct {
	Name     string `yaml:"name"`
	Universe int    `yaml:"universe"`
	Channels string `yaml:"channels"`
}

type file struct {
	Scenes []record `yaml:"scenes"`
}

// Store is a set of scenes, safe for concurrent use
type Store struct {
	mu     sync.RWMutex
	scenes map[string]*Scene
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{scenes: make(map[string]*Scene)}
}

// Open loads a store from path. A missing file gives an empty store.
func Open(path string) (*Store, error) {
	s := NewStore()
	if err := s.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Load replaces the store's scenes with those in the file at path.
// Nothing changes when the file cannot be read or holds a bad scene.
func (s *Store) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	scenes := make(map[string]*Scene, len(f.Scenes))
	for i, r := range f.Scenes {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return fmt.Errorf("%s: scene %d has no name: %w", path, i, ErrInvalidScene)
		}
		if _, dup := scenes[name]; dup {
			return fmt.Errorf("%s: duplicate scene %q: %w", path, name, ErrInvalidScene)
		}
		if r.Universe < 0 || r.Universe > dmx.MaxUniverse {
			return fmt.Errorf("%s: scene %q universe %d: %w", path, name, r.Universe, ErrInvalidScene)
		}
		frame := dmx.NewBuffer()
		if !frame.SetFromString(r.Channels) {
			return fmt.Errorf("%s: scene %q channels: %w", path, name, ErrInvalidScene)
		}
		scenes[name] = &Scene{Name: name, Universe: r.Universe, Frame: frame}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.scenes {
		old.Frame.Release()
	}
	s.scenes = scenes
	return nil
}

// Save writes every scene to path, sorted by name. The file is replaced
// atomically.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	f := file{Scenes: make([]record, 0, len(s.scenes))}
	for _, name := range s.namesLocked() {
		sc := s.scenes[name]
		f.Scenes = append(f.Scenes, record{
			Name:     sc.Name,
			Universe: sc.Universe,
			Channels: sc.Frame.String(),
		})
	}
	s.mu.RUnlock()

	b, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Put stores a copy of frame under name, replacing any scene of that name
func (s *Store) Put(name string, universe int, frame *dmx.Buffer) error {
	name = strings.TrimSpace(name)
	if name == "" || frame == nil {
		return ErrInvalidScene
	}
	if universe < 0 || universe > dmx.MaxUniverse {
		return fmt.Errorf("universe %d: %w", universe, ErrInvalidScene)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.scenes[name]; ok {
		old.Frame.Release()
	}
	s.scenes[name] = &Scene{Name: name, Universe: universe, Frame: frame.Copy()}
	return nil
}

// Get returns a scene. The frame is a copy the caller owns.
func (s *Store) Get(name string) (Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenes[name]
	if !ok {
		return Scene{}, fmt.Errorf("%q: %w", name, ErrSceneNotFound)
	}
	return Scene{Name: sc.Name, Universe: sc.Universe, Frame: sc.Frame.Copy()}, nil
}

// Delete removes a scene
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenes[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrSceneNotFound)
	}
	sc.Frame.Release()
	delete(s.scenes, name)
	return nil
}

// Names returns the scene names in sorted order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namesLocked()
}

func (s *Store) namesLocked() []string {
	names := make([]string, 0, len(s.scenes))
	for name := range s.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
