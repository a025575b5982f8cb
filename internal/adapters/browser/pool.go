package browser

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/snapwatch/worker/internal/adapters/metrics"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/ports"
	"golang.org/x/sync/errgroup"
)

// PoolConfig controls how the fixed browser fleet is launched.
type PoolConfig struct {
	Size           int
	BinPath        string
	NoSandbox      bool
	AcquireTimeout time.Duration
}

// Handle is one pooled chromium instance with its launcher.
type Handle struct {
	Browser  *rod.Browser
	launcher *launcher.Launcher
}

func (h *Handle) close() error {
	err := h.Browser.Close()
	h.launcher.Cleanup()
	return err
}

// alive probes the browser with a cheap CDP call.
func (h *Handle) alive() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := h.Browser.Context(ctx).Version()
	return err == nil
}

// Pool owns a fixed set of headless browsers. Acquire hands out idle
// instances and queues callers FIFO when none are idle; Release returns
// an instance to the first waiter or back to the idle set. A browser
// that died while checked out is replaced in the background.
type Pool struct {
	cfg PoolConfig

	mu        sync.Mutex
	available []*Handle
	waiters   []chan *Handle
	inUse     int
	closed    bool
}

// NewPool launches cfg.Size browsers up front. Any launch failure
// closes what was already started and is returned to the caller.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 300 * time.Second
	}

	p := &Pool{cfg: cfg}

	for i := 0; i < cfg.Size; i++ {
		h, err := p.spawn()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to launch browser %d/%d: %w", i+1, cfg.Size, err)
		}
		p.available = append(p.available, h)
	}

	log.Printf("Browser pool ready: %d headless instances", cfg.Size)
	p.mu.Lock()
	p.updateGauges()
	p.mu.Unlock()

	return p, nil
}

func (p *Pool) spawn() (*Handle, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("mute-audio").
		Set("hide-scrollbars")

	if p.cfg.BinPath != "" {
		l = l.Bin(p.cfg.BinPath)
	}
	if p.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to chromium: %w", err)
	}

	return &Handle{Browser: browser, launcher: l}, nil
}

// Acquire returns an idle browser, or queues the caller until one is
// released. Waiting ends with ErrAcquireTimeout after the configured
// ceiling, with ctx cancellation, or with ErrPoolClosed on shutdown.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, domain.ErrPoolClosed
	}

	if n := len(p.available); n > 0 {
		h := p.available[n-1]
		p.available = p.available[:n-1]
		p.inUse++
		p.updateGauges()
		p.mu.Unlock()
		return h, nil
	}

	ch := make(chan *Handle, 1)
	p.waiters = append(p.waiters, ch)
	p.updateGauges()
	p.mu.Unlock()

	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case h, ok := <-ch:
		if !ok {
			return nil, domain.ErrPoolClosed
		}
		return h, nil
	case <-timer.C:
		p.abandonWait(ch)
		return nil, domain.ErrAcquireTimeout
	case <-ctx.Done():
		p.abandonWait(ch)
		return nil, ctx.Err()
	}
}

// abandonWait removes ch from the queue; when a browser was already
// handed over concurrently, it is returned to the pool.
func (p *Pool) abandonWait(ch chan *Handle) {
	p.mu.Lock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.updateGauges()
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	select {
	case h, ok := <-ch:
		if ok {
			p.Release(h)
		}
	default:
	}
}

// Release returns a browser to the pool. A dead browser is discarded
// and a replacement spawned in the background, handed to the first
// waiter when one is queued.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}

	if !h.alive() {
		log.Println("Warning: pooled browser died, spawning replacement")
		metrics.BrowserRespawnsTotal.Inc()
		go func() { _ = h.close() }()

		p.mu.Lock()
		p.inUse--
		closed := p.closed
		p.updateGauges()
		p.mu.Unlock()

		if !closed {
			go p.respawn()
		}
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = h.close()
		return
	}

	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		ch <- h
		p.updateGauges()
		p.mu.Unlock()
		return
	}

	p.inUse--
	p.available = append(p.available, h)
	p.updateGauges()
	p.mu.Unlock()
}

func (p *Pool) respawn() {
	h, err := p.spawn()
	if err != nil {
		log.Printf("Warning: failed to respawn browser: %v", err)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = h.close()
		return
	}

	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.inUse++
		ch <- h
	} else {
		p.available = append(p.available, h)
	}
	p.updateGauges()
	p.mu.Unlock()
}

// Stats reports the pool occupancy for health checks.
func (p *Pool) Stats() ports.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ports.PoolStats{
		Total:     p.cfg.Size,
		Available: len(p.available),
		InUse:     p.inUse,
		Waiting:   len(p.waiters),
	}
}

// Close fails all waiters and shuts the browsers down in parallel.
// Handles still checked out are closed on their eventual Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	waiters := p.waiters
	p.waiters = nil
	handles := p.available
	p.available = nil
	p.updateGauges()
	p.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}

	g := new(errgroup.Group)
	for _, h := range handles {
		h := h
		g.Go(func() error {
			return h.close()
		})
	}
	return g.Wait()
}

// updateGauges must be called with p.mu held.
func (p *Pool) updateGauges() {
	metrics.BrowsersAvailable.Set(float64(len(p.available)))
	metrics.BrowsersInUse.Set(float64(p.inUse))
	metrics.PoolWaiters.Set(float64(len(p.waiters)))
}
