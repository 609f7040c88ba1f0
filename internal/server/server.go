// Package server exposes universes over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/scene"
)

// sceneSourcePrefix names the source a recalled scene is stored under
const sceneSourcePrefix = "scene:"

// maxFrameBody bounds PUT bodies; a full frame is under 2 KiB of text
const maxFrameBody = 8 << 10

// Server serves the REST API and frame stream for a set of universes
type Server struct {
	router    *mux.Router
	universes map[int]*dmx.Universe
	scenes    *scene.Store
	log       zerolog.Logger
	version   string
	interval  time.Duration
	upgrader  websocket.Upgrader
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and stream logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.log = logger }
}

// WithVersion sets the version reported by /version
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithStreamInterval sets how often WebSocket clients are checked for a
// changed frame
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New builds a server for the given universes. scenes may be nil, in
// which case scene recall answers 404.
func New(universes []*dmx.Universe, scenes *scene.Store, opts ...Option) *Server {
	s := &Server{
		universes: make(map[int]*dmx.Universe, len(universes)),
		scenes:    scenes,
		log:       zerolog.Nop(),
		version:   "dev",
		interval:  40 * time.Millisecond,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, u := range universes {
		s.universes[u.ID()] = u
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/version", s.versionInfo).Methods("GET")
	r.HandleFunc("/universes", s.listUniverses).Methods("GET")
	r.HandleFunc("/universe/{id:[0-9]+}", s.getUniverse).Methods("GET")
	r.HandleFunc("/universe/{id:[0-9]+}/source/{name}", s.setSource).Methods("PUT")
	r.HandleFunc("/universe/{id:[0-9]+}/source/{name}", s.removeSource).Methods("DELETE")
	r.HandleFunc("/universe/{id:[0-9]+}/blackout", s.blackout).Methods("POST")
	r.HandleFunc("/universe/{id:[0-9]+}/blackout", s.clearBlackout).Methods("DELETE")
	r.HandleFunc("/universe/{id:[0-9]+}/scene/{name}", s.recallScene).Methods("POST")
	r.HandleFunc("/universe/{id:[0-9]+}/ws", s.streamFrames).Methods("GET")
	r.Use(s.logRequests)
	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type universeInfo struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Merge    string   `json:"merge"`
	Blackout bool     `json:"blackout"`
	Sources  []string `json:"sources"`
	Size     int      `json:"size"`
	Channels string   `json:"channels,omitempty"`
}

func describe(u *dmx.Universe, withChannels bool) universeInfo {
	frame := u.Frame()
	defer frame.Release()

	info := universeInfo{
		ID:       u.ID(),
		Name:     u.Name(),
		Merge:    u.MergeMode().String(),
		Blackout: u.InBlackout(),
		Sources:  u.Sources(),
		Size:     frame.Size(),
	}
	if withChannels {
		info.Channels = frame.String()
	}
	return info
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// universe looks up the {id} route variable, answering 404 itself
func (s *Server) universe(w http.ResponseWriter, r *http.Request) (*dmx.Universe, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad universe id")
		return nil, false
	}
	u, ok := s.universes[id]
	if !ok {
		writeError(w, http.StatusNotFound, "universe not found")
		return nil, false
	}
	return u, true
}

func (s *Server) versionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Version string `json:"version"`
	}{s.version})
}

func (s *Server) listUniverses(w http.ResponseWriter, r *http.Request) {
	ids := make([]int, 0, len(s.universes))
	for id := range s.universes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	list := make([]universeInfo, 0, len(ids))
	for _, id := range ids {
		list = append(list, describe(s.universes[id], false))
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getUniverse(w http.ResponseWriter, r *http.Request) {
	u, ok := s.universe(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, describe(u, true))
}

func (s *Server) setSource(w http.ResponseWriter, r *http.Request) {
	u, ok := s.universe(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	frame := dmx.NewBuffer()
	defer frame.Release()
	if !frame.SetFromString(string(body)) {
		writeError(w, http.StatusBadRequest, "channels must be comma separated values 0-255")
		return
	}

	u.SetSource(mux.Vars(r)["name"], frame)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeSource(w http.ResponseWriter, r *http.Request) {
	u, ok := s.universe(w, r)
	if !ok {
		return
	}
	if err := u.RemoveSource(mux.Vars(r)["name"]); err != nil {
		if errors.Is(err, dmx.ErrSourceNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) blackout(w http.ResponseWriter, r *http.Request) {
	u, ok := s.universe(w, r)
	if !ok {
		return
	}
	u.Blackout()
	s.log.Info().Int("universe", u.ID()).Msg("blackout")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearBlackout(w http.ResponseWriter, r *http.Request) {
	u, ok := s.universe(w, r)
	if !ok {
		return
	}
	u.ClearBlackout()
	w.WriteHeader(http.StatusNoContent)
}

// recallScene installs a stored scene as a source of the universe
func (s *Server) recallScene(w http.ResponseWriter, r *http.Request) {
	u, ok := s.universe(w, r)
	if !ok {
		return
	}
	if s.scenes == nil {
		writeError(w, http.StatusNotFound, "no scene store")
		return
	}

	name := mux.Vars(r)["name"]
	sc, err := s.scenes.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	defer sc.Frame.Release()

	u.SetSource(sceneSourcePrefix+name, sc.Frame)
	w.WriteHeader(http.StatusNoContent)
}

// streamFrames sends the merged frame in text form whenever it changes
func (s *Server) streamFrames(w http.ResponseWriter, r *http.Request) {
	u, ok := s.universe(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	// drain client messages so close frames are seen
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last dmx.Buffer
	defer last.Release()
	first := true

	for {
		frame := u.Frame()
		if first || !frame.Equal(&last) {
			conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame.String())); err != nil {
				s.log.Debug().Err(err).Msg("write frame")
				frame.Release()
				return
			}
			last.Assign(frame)
			first = false
		}
		frame.Release()

		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
