package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"permitdesk/internal/domain"
)

// contentSecurityPolicy restricts the page to scripts from the asset route.
const contentSecurityPolicy = "default-src 'none'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'"

const maxMessageBytes = 1 << 20

// WebOptions configures the browser panel server.
type WebOptions struct {
	// Listen is the local address, e.g. 127.0.0.1:0.
	Listen string

	// OpenBrowser launches the system browser when a panel is created or revealed.
	OpenBrowser bool

	// Opener overrides how the browser is launched.
	Opener func(url string) error

	Logger *zap.Logger
}

// WebServer serves a browser panel over a local HTTP listener. It is a
// SurfaceFactory holding at most one webSurface.
type WebServer struct {
	opts   WebOptions
	logger *zap.Logger
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	surface  *webSurface
}

// NewWebServer creates an unstarted server.
func NewWebServer(opts WebOptions) *WebServer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Listen == "" {
		opts.Listen = "127.0.0.1:0"
	}
	if opts.Opener == nil {
		opts.Opener = OpenBrowser
	}
	s := &WebServer{opts: opts, logger: logger.Named("web")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /assets/", s.handleAsset)
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /events", s.handleEvents)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Listen binds the listener so URL is known before Serve.
func (s *WebServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}
	s.listener = ln
	return nil
}

// URL returns the panel address, or "" before Listen.
func (s *WebServer) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String() + "/"
}

// Serve runs until ctx is canceled, then shuts down and disposes the panel.
func (s *WebServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	s.logger.Info("panel server listening", zap.String("url", s.URL()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()
	if surface != nil {
		surface.Dispose()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("panel server shutdown: %w", err)
	}
	<-errCh
	return nil
}

// CreateSurface implements SurfaceFactory.
func (s *WebServer) CreateSurface(opts SurfaceOptions) (Surface, error) {
	s.mu.Lock()
	if s.surface != nil {
		s.mu.Unlock()
		return nil, errors.New("a browser panel is already open")
	}

	ws := &webSurface{
		server:  s,
		id:      opts.ID,
		root:    opts.ResourceRoot,
		clients: make(map[chan sseEvent]struct{}),
		closed:  make(chan struct{}),
	}
	if err := ws.watch(); err != nil {
		// Reloading is a convenience; the panel works without it.
		s.logger.Warn("asset watching disabled", zap.String("root", opts.ResourceRoot), zap.Error(err))
	}
	s.surface = ws
	s.mu.Unlock()

	s.openBrowser()
	return ws, nil
}

func (s *WebServer) current() *webSurface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

func (s *WebServer) release(ws *webSurface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == ws {
		s.surface = nil
	}
}

func (s *WebServer) openBrowser() {
	url := s.URL()
	if !s.opts.OpenBrowser || url == "" {
		return
	}
	if err := s.opts.Opener(url); err != nil {
		s.logger.Warn("failed to open browser", zap.String("url", url), zap.Error(err))
	}
}

func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	ws := s.current()
	if ws == nil {
		http.Error(w, "no panel is open", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, ws.content())
}

func (s *WebServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	ws := s.current()
	if ws == nil || ws.root == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
	w.Header().Set("Cache-Control", "no-store")
	// http.Dir rejects paths that escape the root
	http.StripPrefix("/assets/", http.FileServer(http.Dir(ws.root))).ServeHTTP(w, r)
}

func (s *WebServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	ws := s.current()
	if ws == nil {
		http.Error(w, "no panel is open", http.StatusServiceUnavailable)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws.deliver(body)
	w.WriteHeader(http.StatusAccepted)
}

func (s *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws := s.current()
	if ws == nil {
		http.Error(w, "no panel is open", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	ch := ws.subscribe()
	defer ws.unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.name != "" {
				fmt.Fprintf(w, "event: %s\n", ev.name)
			}
			fmt.Fprintf(w, "data: %s\n\n", ev.data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

type sseEvent struct {
	name string
	data []byte
}

// webSurface is one browser panel
type webSurface struct {
	server *WebServer
	id     string
	root   string

	mu        sync.Mutex
	html      string
	clients   map[chan sseEvent]struct{}
	onMessage func(raw []byte)
	onDispose func()
	onChange  func()
	watcher   *fsnotify.Watcher
	closed    chan struct{}
	closeOnce sync.Once
	watchDone sync.WaitGroup
}

func (ws *webSurface) Kind() string { return "browser" }

func (ws *webSurface) Reveal() {
	ws.server.openBrowser()
}

func (ws *webSurface) AssetURI(name string) string {
	return "/assets/" + filepath.ToSlash(name)
}

func (ws *webSurface) SetContent(html string) {
	ws.mu.Lock()
	reload := ws.html != ""
	ws.html = html
	ws.mu.Unlock()
	if reload {
		ws.broadcast(sseEvent{name: "reload", data: []byte("{}")})
	}
}

func (ws *webSurface) content() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.html
}

func (ws *webSurface) Post(msg domain.Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-ws.closed:
		return errors.New("panel disposed")
	default:
	}
	ws.broadcast(sseEvent{data: data})
	return nil
}

func (ws *webSurface) OnMessage(handler func(raw []byte)) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.onMessage = handler
}

func (ws *webSurface) OnDispose(handler func()) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.onDispose = handler
}

func (ws *webSurface) OnAssetsChanged(handler func()) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.onChange = handler
}

// Dispose closes every event stream, stops watching and notifies the host.
func (ws *webSurface) Dispose() {
	ws.closeOnce.Do(func() {
		close(ws.closed)
		ws.server.release(ws)

		ws.mu.Lock()
		for ch := range ws.clients {
			close(ch)
			delete(ws.clients, ch)
		}
		watcher := ws.watcher
		onDispose := ws.onDispose
		ws.mu.Unlock()

		if watcher != nil {
			_ = watcher.Close()
			ws.watchDone.Wait()
		}
		if onDispose != nil {
			onDispose()
		}
	})
}

func (ws *webSurface) deliver(raw []byte) {
	ws.mu.Lock()
	handler := ws.onMessage
	ws.mu.Unlock()
	if handler != nil {
		handler(raw)
	}
}

func (ws *webSurface) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 16)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	select {
	case <-ws.closed:
		close(ch)
	default:
		ws.clients[ch] = struct{}{}
	}
	return ch
}

func (ws *webSurface) unsubscribe(ch chan sseEvent) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if _, ok := ws.clients[ch]; ok {
		delete(ws.clients, ch)
		close(ch)
	}
}

func (ws *webSurface) broadcast(ev sseEvent) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for ch := range ws.clients {
		select {
		case ch <- ev:
		default:
			ws.server.logger.Warn("panel client too slow, dropping event", zap.String("panel_id", ws.id))
		}
	}
}

// watch reloads the content when files under the resource root change
func (ws *webSurface) watch() error {
	if ws.root == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(ws.root); err != nil {
		_ = watcher.Close()
		return err
	}
	ws.watcher = watcher

	ws.watchDone.Add(1)
	go func() {
		defer ws.watchDone.Done()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				ws.mu.Lock()
				onChange := ws.onChange
				ws.mu.Unlock()
				if onChange != nil {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				ws.server.logger.Warn("asset watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
