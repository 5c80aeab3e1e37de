package devserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/bundlekit/internal/build"
	"github.com/conneroisu/bundlekit/internal/bundleconfig"
	"github.com/conneroisu/bundlekit/internal/config"
	"github.com/conneroisu/bundlekit/internal/errors"
	"github.com/conneroisu/bundlekit/internal/logging"
	"github.com/conneroisu/bundlekit/internal/middleware"
	"github.com/conneroisu/bundlekit/internal/websocket"
)

const shutdownTimeout = 5 * time.Second

// Options configure a dev server.
type Options struct {
	Settings config.DevServerSettings
	Project  string
	Root     string
	// CacheDir receives the live-reload client. It must be absolute.
	CacheDir   string
	Controller *build.Controller
	Metrics    *build.Metrics
	Logger     logging.Logger
}

// Server compiles in watch mode and serves the output with live reload.
type Server struct {
	opts      Options
	hub       *websocket.WebSocketManager
	logger    logging.Logger
	startedAt time.Time

	mutex sync.RWMutex
	task  *build.Task
	last  *build.Outcome
}

// New creates a dev server. Nothing runs until Start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("devserver")

	return &Server{
		opts:      opts,
		hub:       websocket.NewWebSocketManager(websocket.AllowedOrigins(opts.Settings.AllowedOrigins), logger),
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Prepare writes the live-reload client, injects it into every entry and
// starts watch-mode compilation. Errors from resolving the configuration
// or creating the compiler are returned unchanged.
func (s *Server) Prepare(ctx context.Context) (*build.Task, error) {
	clientPath, err := WriteClient(s.opts.CacheDir)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeServerFailed, "writing live-reload client", err)
	}
	ref := ClientRef(clientPath, s.opts.Settings.Host, s.opts.Settings.Port)

	ctrl := *s.opts.Controller
	prev := ctrl.Transform
	ctrl.Transform = func(cfg *bundleconfig.Config) (*bundleconfig.Config, error) {
		if prev != nil {
			var err error
			if cfg, err = prev(cfg); err != nil {
				return nil, err
			}
		}
		return InjectEntries(cfg, ref, s.opts.Root), nil
	}

	task, err := ctrl.Watch(ctx)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	s.task = task
	s.mutex.Unlock()

	return task, nil
}

// Start prepares the build, then serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	task, err := s.Prepare(ctx)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.opts.Settings.Addr())
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeServerFailed, "listening on "+s.opts.Settings.Addr(), err)
	}

	return s.Serve(ctx, task, listener)
}

// Serve serves HTTP on listener and relays task outcomes to browsers until
// ctx is done.
func (s *Server) Serve(ctx context.Context, task *build.Task, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.relay(gctx, task)
		return nil
	})

	g.Go(func() error {
		s.logger.Info(gctx, "dev server listening", "url", s.opts.Settings.URL())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			return errors.NewNetworkError(errors.ErrCodeServerFailed, "dev server failed", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.hub.Shutdown(shutdownCtx)
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// relay records each outcome and tells browsers to reload or show errors.
func (s *Server) relay(ctx context.Context, task *build.Task) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-task.Outcomes():
			if !ok {
				return
			}
			s.mutex.Lock()
			s.last = &o
			s.mutex.Unlock()

			if o.State == build.StateDone {
				hash := ""
				if o.Stats != nil {
					hash = o.Stats.Hash
				}
				s.hub.Reload(hash)
				continue
			}

			utils := task.Handle().Utils
			msgs := make([]string, 0, len(o.Classification.Diagnostics))
			for _, d := range o.Classification.Diagnostics {
				msgs = append(msgs, utils.Format(d))
			}
			s.hub.ReportErrors(msgs)
		}
	}
}

// HTTPHandler returns the routes wrapped in the dev server's middleware
// stack.
func (s *Server) HTTPHandler() http.Handler {
	return middleware.NewChain(
		middleware.Logging(s.logger),
		middleware.Recover(s.logger),
		middleware.CORS(websocket.AllowedOrigins(s.opts.Settings.AllowedOrigins)),
		middleware.NoCache(),
	).Apply(s.Handler())
}

// Handler returns the dev server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/__livereload", s.hub.HandleWebSocket)
	mux.HandleFunc("/__status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics.Handler())
	}

	if handle := s.handle(); handle != nil {
		public := handle.Config.Output.PublicPath
		if public == "" || public == "/" {
			public = "/"
		} else if !strings.HasSuffix(public, "/") {
			public += "/"
		}
		if public != "/" {
			mux.Handle(public, http.StripPrefix(public, http.FileServer(handle.Utils.OutputFS())))
		} else {
			mux.Handle("/", http.FileServer(handle.Utils.OutputFS()))
			return mux
		}
	}

	// project files such as index.html
	mux.Handle("/", http.FileServer(afero.NewHttpFs(afero.NewReadOnlyFs(afero.NewOsFs())).Dir(s.opts.Root)))

	return mux
}

func (s *Server) handle() *build.Handle {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.task == nil {
		return nil
	}
	return s.task.Handle()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	templ.Handler(StatusPage(s.Status())).ServeHTTP(w, r)
}

// Status snapshots what the status page shows.
func (s *Server) Status() StatusView {
	v := StatusView{
		Project:   s.opts.Project,
		URL:       s.opts.Settings.URL(),
		Entries:   map[string][]string{},
		Metrics:   s.opts.Metrics.Snapshot(),
		Clients:   s.hub.GetConnectedClients(),
		StartedAt: s.startedAt,
	}
	if handle := s.handle(); handle != nil {
		for name, entry := range handle.Config.Entry {
			v.Entries[name] = []string(entry)
		}
	}

	s.mutex.RLock()
	if s.last != nil {
		last := *s.last
		v.Last = &last
	}
	s.mutex.RUnlock()

	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := build.StateIdle
	s.mutex.RLock()
	if s.last != nil {
		state = s.last.State
	}
	s.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"build":   state.String(),
		"clients": s.hub.GetConnectedClients(),
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}
