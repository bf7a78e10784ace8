// Package feed serves the cache over a websocket so a UI can render every
// snapshot and send intents back to the sync coordinator.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"todolist/internal/agenda"
	"todolist/internal/cache"
	"todolist/internal/service"
	"todolist/internal/syncer"
)

const writeTimeout = 5 * time.Second

// Server exposes /healthz and /ws.
type Server struct {
	sync    *syncer.Coordinator
	cache   *cache.Cache
	origins []string
	logger  *slog.Logger
	now     func() time.Time
}

// NewServer creates a feed for co. origins lists the allowed browser origins,
// e.g. "http://localhost:3000" or "*". Without any only same-origin clients connect.
func NewServer(co *syncer.Coordinator, origins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		sync:    co,
		cache:   co.Cache(),
		origins: origins,
		logger:  logger.With("component", "feed"),
		now:     time.Now,
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(r)
}

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown", "err", err)
		}
	}()

	s.logger.Info("listening", "addr", l.Addr().String())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.origins),
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pending := newLatest()
	unsubscribe := s.cache.Subscribe(pending.offer)
	defer unsubscribe()
	pending.offer(s.cache.Snapshot())

	replies := make(chan Reply)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, conn, replies, readErr)

	s.logger.Debug("client connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				s.logger.Debug("client read failed", "err", err)
			}
			return
		case <-pending.ready:
			if err := s.flush(ctx, conn, pending); err != nil {
				s.logger.Debug("client write failed", "err", err)
				return
			}
		case reply := <-replies:
			// The snapshot produced by an intent goes out before its reply.
			if err := s.flush(ctx, conn, pending); err != nil {
				s.logger.Debug("client write failed", "err", err)
				return
			}
			if err := s.write(ctx, conn, reply); err != nil {
				s.logger.Debug("client write failed", "err", err)
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, replies chan<- Reply, readErr chan<- error) {
	for {
		var in Intent
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			readErr <- err
			return
		}
		reply := s.handle(ctx, in)
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) flush(ctx context.Context, conn *websocket.Conn, pending *latest) error {
	snap, ok := pending.take()
	if !ok {
		return nil
	}
	return s.write(ctx, conn, newSnapshot(snap))
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

// handle runs one intent against the coordinator for the signed-in user.
func (s *Server) handle(ctx context.Context, in Intent) Reply {
	reply := Reply{Type: TypeReply, ReplyTo: in.ID}
	err := func() error {
		switch in.Op {
		case OpLoad:
			tasks, err := s.sync.FetchCollection(ctx, "")
			reply.Tasks = tasks
			return err
		case OpRefresh:
			tasks, err := s.sync.Refresh(ctx, "")
			reply.Tasks = tasks
			return err
		case OpAdd:
			if in.Task == nil {
				return errors.New("add needs a task")
			}
			task := *in.Task
			if task.ID == "" {
				var err error
				if task, err = agenda.NewTask(task.Title, task.DueDate, task.Priority, s.now()); err != nil {
					return err
				}
			}
			if err := s.sync.AddTask(ctx, "", task); err != nil {
				return err
			}
			reply.Task = &task
			return nil
		case OpUpdate:
			if in.Task == nil {
				return errors.New("update needs a task")
			}
			if err := s.sync.UpdateTask(ctx, "", *in.Task); err != nil {
				return err
			}
			reply.Task = in.Task
			return nil
		case OpDone:
			task, err := s.sync.SetDone(ctx, "", in.TaskID, in.Done)
			if err != nil {
				return err
			}
			reply.Task = &task
			return nil
		case OpDelete:
			return s.sync.DeleteTask(ctx, "", in.TaskID)
		case OpFilter:
			value, err := filterValue(in.Field, in.Value)
			if err != nil {
				return err
			}
			tasks, err := s.sync.FilterCollection(ctx, "", in.Field, value)
			reply.Tasks = tasks
			return err
		case OpClearFilter:
			return s.sync.ClearFilter("")
		case OpProfile:
			profile, err := s.sync.FetchProfile(ctx, "")
			if err != nil {
				return err
			}
			reply.Profile = &profile
			return nil
		default:
			return fmt.Errorf("unknown op: %q", in.Op)
		}
	}()
	if err != nil {
		s.logger.Debug("intent failed", "op", in.Op, "id", in.ID, "err", err)
		reply.Error = err.Error()
		reply.Tasks = nil
		return reply
	}
	reply.OK = true
	return reply
}

// filterValue converts a JSON string to the field's type. Other JSON values
// pass through.
func filterValue(field string, v any) (any, error) {
	if raw, ok := v.(string); ok {
		return service.ParseFieldValue(field, raw)
	}
	return v, nil
}

// originPatterns converts CORS origins to the host patterns websocket.Accept expects.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			patterns = append(patterns, o)
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// latest holds the newest undelivered snapshot. A slow client skips the
// versions it could not keep up with.
type latest struct {
	mu      sync.Mutex
	snap    cache.Snapshot
	seen    bool
	pending bool
	ready   chan struct{}
}

func newLatest() *latest {
	return &latest{ready: make(chan struct{}, 1)}
}

func (l *latest) offer(s cache.Snapshot) {
	l.mu.Lock()
	if l.seen && s.Version <= l.snap.Version {
		l.mu.Unlock()
		return
	}
	l.snap, l.seen, l.pending = s, true, true
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latest) take() (cache.Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.pending {
		return cache.Snapshot{}, false
	}
	l.pending = false
	return l.snap, true
}
