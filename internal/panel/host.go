// Package panel hosts the single search panel and relays its requests to the
// backend API.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"permitdesk/internal/domain"
	"permitdesk/internal/eventbus"
)

// Title is shown in the panel chrome.
const Title = "Food Facility Permits"

// ErrHostClosed is returned by Open after Close.
var ErrHostClosed = errors.New("panel host closed")

// Supervisor keeps the backend process alive.
type Supervisor interface {
	Running() bool
	EnsureRunning(ctx context.Context) error
}

// Forwarder performs a logical request against the backend.
type Forwarder interface {
	Forward(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, error)
}

// Notifier shows a one-off message to the user outside the panel.
type Notifier interface {
	NotifyError(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) NotifyError(msg string) { f(msg) }

// Surface is a place a panel is rendered: a terminal program or a browser page.
type Surface interface {
	Kind() string
	Reveal()
	Post(msg domain.Outbound) error
	OnMessage(handler func(raw []byte))
	OnDispose(handler func())
	Dispose()
}

// ContentSurface renders the HTML bundle from the resource root.
type ContentSurface interface {
	Surface
	AssetURI(name string) string
	SetContent(html string)
}

// Reloader is implemented by surfaces that watch their resource root.
type Reloader interface {
	OnAssetsChanged(handler func())
}

// SurfaceOptions are passed to a SurfaceFactory.
type SurfaceOptions struct {
	ID            string
	Title         string
	EnableScripts bool
	ResourceRoot  string
}

// SurfaceFactory creates panel surfaces.
type SurfaceFactory interface {
	CreateSurface(opts SurfaceOptions) (Surface, error)
}

// HostOptions configures a Host.
type HostOptions struct {
	Supervisor Supervisor
	Forwarder  Forwarder
	Notifier   Notifier
	Factory    SurfaceFactory
	Bus        eventbus.EventBus
	Logger     *zap.Logger

	// AssetDir is the only resource root the panel may load from.
	AssetDir string
}

type panelHandle struct {
	id       string
	surface  Surface
	disposed sync.Once

	// ctx is cancelled when the panel goes away so pending forwards stop
	ctx    context.Context
	cancel context.CancelFunc
}

// Host owns at most one panel.
type Host struct {
	mu   sync.Mutex
	opts HostOptions
	log  *zap.Logger

	panel    *panelHandle // nil when no panel is open
	closed   bool
	inflight sync.WaitGroup
}

// NewHost creates a host. Supervisor, Forwarder and Factory are required.
func NewHost(opts HostOptions) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(string) {})
	}
	return &Host{opts: opts, log: logger.Named("panel")}
}

// Open makes sure the backend runs, then shows the panel. An existing panel
// is revealed instead of creating a second one.
func (h *Host) Open(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}

	if !h.opts.Supervisor.Running() {
		if err := h.opts.Supervisor.EnsureRunning(ctx); err != nil {
			h.opts.Notifier.NotifyError(fmt.Sprintf("Failed to start backend: %s", err))
			return fmt.Errorf("failed to start backend: %w", err)
		}
	}

	if h.panel != nil {
		h.log.Debug("revealing existing panel", zap.String("panel_id", h.panel.id))
		h.panel.surface.Reveal()
		h.publish(eventbus.PanelRevealedEvent{PanelID: h.panel.id})
		return nil
	}

	id := uuid.NewString()
	surface, err := h.opts.Factory.CreateSurface(SurfaceOptions{
		ID:            id,
		Title:         Title,
		EnableScripts: true,
		ResourceRoot:  h.opts.AssetDir,
	})
	if err != nil {
		h.opts.Notifier.NotifyError(fmt.Sprintf("Failed to load webview: %s", err))
		return fmt.Errorf("failed to create panel: %w", err)
	}

	pctx, cancel := context.WithCancel(context.Background())
	p := &panelHandle{id: id, surface: surface, ctx: pctx, cancel: cancel}

	if cs, ok := surface.(ContentSurface); ok {
		h.loadContent(cs)
		if r, ok := surface.(Reloader); ok {
			r.OnAssetsChanged(func() {
				h.log.Info("panel assets changed, reloading", zap.String("panel_id", id))
				h.loadContent(cs)
			})
		}
	}

	surface.OnMessage(func(raw []byte) { h.receive(p, raw) })
	surface.OnDispose(func() { h.disposed(p) })
	h.panel = p

	h.log.Info("panel opened", zap.String("panel_id", id), zap.String("kind", surface.Kind()))
	h.publish(eventbus.PanelOpenedEvent{PanelID: id, Kind: surface.Kind()})
	return nil
}

// IsOpen reports whether a panel is currently held.
func (h *Host) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.panel != nil
}

// PanelID returns the id of the open panel, or "".
func (h *Host) PanelID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panel == nil {
		return ""
	}
	return h.panel.id
}

// Close disposes the open panel, if any, cancels its in-flight requests and
// waits for them to finish. Messages arriving afterwards are dropped and Open
// fails with ErrHostClosed.
func (h *Host) Close() {
	h.mu.Lock()
	h.closed = true
	p := h.panel
	h.mu.Unlock()

	if p != nil {
		p.surface.Dispose()
		h.disposed(p)
	}
	h.inflight.Wait()
}

// Wait blocks until all in-flight requests have posted their reply.
func (h *Host) Wait() {
	h.inflight.Wait()
}

func (h *Host) loadContent(cs ContentSurface) {
	content, err := LoadContent(h.opts.AssetDir, cs.AssetURI(BundleFile))
	if err != nil {
		h.log.Error("failed to load panel content", zap.String("asset_dir", h.opts.AssetDir), zap.Error(err))
	}
	cs.SetContent(content)
}

func (h *Host) disposed(p *panelHandle) {
	p.disposed.Do(func() {
		p.cancel()

		h.mu.Lock()
		if h.panel == p {
			h.panel = nil
		}
		h.mu.Unlock()

		h.log.Info("panel disposed", zap.String("panel_id", p.id))
		h.publish(eventbus.PanelDisposedEvent{PanelID: p.id})
	})
}

// receive handles one inbound message on its own goroutine
func (h *Host) receive(p *panelHandle, raw []byte) {
	h.mu.Lock()
	if h.closed || h.panel != p {
		h.mu.Unlock()
		h.log.Debug("dropping message for disposed panel", zap.String("panel_id", p.id))
		return
	}
	// Add under mu so Close cannot reach Wait between the check and the Add
	h.inflight.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.inflight.Done()
		h.post(p, h.handle(p.ctx, raw))
	}()
}

// handle turns one inbound message into exactly one outbound message
func (h *Host) handle(ctx context.Context, raw []byte) domain.Outbound {
	req, err := DecodeRequest(raw)
	if err != nil {
		h.log.Warn("rejected panel message", zap.Error(err))
		h.publish(eventbus.RequestFailedEvent{RequestID: req.ID, Endpoint: req.Endpoint, Message: err.Error()})
		return domain.ErrorMessage(req.ID, err.Error())
	}

	start := time.Now()
	data, err := h.opts.Forwarder.Forward(ctx, req.Endpoint, req.Params)
	if err != nil {
		h.log.Error("request failed",
			zap.String("request_id", req.ID),
			zap.String("endpoint", req.Endpoint),
			zap.Error(err))
		h.publish(eventbus.RequestFailedEvent{RequestID: req.ID, Endpoint: req.Endpoint, Message: err.Error()})
		return domain.ErrorMessage(req.ID, err.Error())
	}

	elapsed := time.Since(start)
	h.log.Debug("request forwarded",
		zap.String("request_id", req.ID),
		zap.String("endpoint", req.Endpoint),
		zap.Duration("elapsed", elapsed))
	h.publish(eventbus.RequestForwardedEvent{RequestID: req.ID, Endpoint: req.Endpoint, Duration: elapsed})
	return domain.ResponseMessage(req.ID, data)
}

// post delivers msg if p is still the open panel
func (h *Host) post(p *panelHandle, msg domain.Outbound) {
	h.mu.Lock()
	current := h.panel == p
	h.mu.Unlock()
	if !current {
		h.log.Debug("dropping reply for disposed panel", zap.String("panel_id", p.id))
		return
	}
	if err := p.surface.Post(msg); err != nil {
		h.log.Warn("failed to post to panel", zap.String("panel_id", p.id), zap.Error(err))
	}
}

func (h *Host) publish(e eventbus.DomainEvent) {
	if h.opts.Bus != nil {
		h.opts.Bus.Publish(e)
	}
}
