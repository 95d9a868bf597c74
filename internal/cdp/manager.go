package cdp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ajsharma/dom_tail/internal/config"
	"github.com/ajsharma/dom_tail/internal/events"
	"github.com/ajsharma/dom_tail/internal/logger"
	"github.com/ajsharma/dom_tail/internal/metrics"
	"github.com/ajsharma/dom_tail/internal/monitor"
)

const (
	// reconnectInterval is the first wait after the browser connection
	// drops; it doubles up to maxReconnectWait.
	reconnectInterval = 1 * time.Second
	maxReconnectWait  = 30 * time.Second

	chromeStartupTimeout = 30 * time.Second
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the operator logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics shares a metrics sink with the tab monitors.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// Manager holds the browser connection and runs one DOMMonitor per page
// target.
type Manager struct {
	config        *config.Config
	fileManager   *logger.FileManager
	tabRegistry   *logger.TabRegistry
	chromeProcess *ChromeProcess
	log           *zap.Logger
	metrics       *metrics.Metrics

	tabMonitors      map[string]*monitor.DOMMonitor // targetID -> monitor
	internalTargetID string
	browserCtx       context.Context
	browserCancel    context.CancelFunc
	mu               sync.RWMutex

	connected atomic.Bool
	stopOnce  sync.Once
}

// NewManager creates a new Manager.
func NewManager(cfg *config.Config, fm *logger.FileManager, opts ...Option) *Manager {
	m := &Manager{
		config:      cfg,
		fileManager: fm,
		tabRegistry: logger.NewTabRegistry(),
		tabMonitors: make(map[string]*monitor.DOMMonitor),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	return m
}

// Start connects to Chrome and mirrors its tabs until ctx is cancelled.
// A lost connection is retried with exponential backoff. Start returns nil
// on cancellation; only a failed auto-launch is an error.
func (m *Manager) Start(ctx context.Context) error {
	if m.config.AutoLaunch {
		if err := m.launch(); err != nil {
			return err
		}
	}

	sessionEvent := events.NewSessionStartEvent(
		m.tabRegistry.SessionID(),
		m.chromePID(),
		config.Version,
	)
	if err := m.fileManager.WriteEvent("_session", sessionEvent); err != nil {
		m.log.Warn("failed to write session start event", zap.Error(err))
	}

	wait := reconnectInterval
	for {
		connected, err := m.run(ctx)
		m.connected.Store(false)
		m.clearTabMonitors()

		if ctx.Err() != nil {
			return nil
		}
		if connected {
			wait = reconnectInterval
		}
		if err != nil {
			m.log.Warn("chrome connection failed",
				zap.String("port", m.config.ChromePort),
				zap.Duration("retry_in", wait),
				zap.Error(err),
			)
		} else {
			m.log.Info("chrome connection lost, reconnecting", zap.Duration("retry_in", wait))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait = min(wait*2, maxReconnectWait)
	}
}

func (m *Manager) launch() error {
	proc, err := LaunchChrome(m.config.ChromePort)
	if err != nil {
		return fmt.Errorf("failed to launch chrome: %w", err)
	}
	if err := WaitForChrome(m.config.ChromePort, chromeStartupTimeout); err != nil {
		_ = proc.Stop()
		return fmt.Errorf("chrome not ready: %w", err)
	}

	m.mu.Lock()
	m.chromeProcess = proc
	m.mu.Unlock()

	m.log.Info("launched chrome",
		zap.Int("pid", proc.PID()),
		zap.String("port", m.config.ChromePort),
	)
	return nil
}

func (m *Manager) chromePID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.chromeProcess == nil {
		return 0
	}
	return m.chromeProcess.PID()
}

// run holds one browser connection until ctx ends or the connection goes
// away. connected reports whether target events were ever flowing.
func (m *Manager) run(ctx context.Context) (connected bool, err error) {
	// Initial discovery via /json; afterwards targets are tracked through
	// CDP events.
	initialTabs, err := DiscoverTabs(m.config.ChromePort)
	if err != nil {
		return false, fmt.Errorf("discover tabs: %w", err)
	}
	browserInfo, err := DiscoverBrowserInfo(m.config.ChromePort)
	if err != nil {
		return false, fmt.Errorf("browser info: %w", err)
	}

	allocatorCtx, allocatorCancel := chromedp.NewRemoteAllocator(ctx, browserInfo.WebSocketDebuggerURL)
	defer allocatorCancel()

	// The first Run on a fresh context opens the anchor tab the session
	// is attached to.
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx,
		target.SetDiscoverTargets(true),
		chromedp.Navigate(anchorPageURL()),
	); err != nil {
		return false, fmt.Errorf("attach anchor tab: %w", err)
	}

	var internalTargetID string
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		internalTargetID = string(c.Target.TargetID)
	}

	m.mu.Lock()
	m.browserCtx, m.browserCancel = browserCtx, browserCancel
	m.internalTargetID = internalTargetID
	m.mu.Unlock()

	m.cleanupOrphanedAnchorTabs(initialTabs)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *target.EventTargetCreated:
			if ev.TargetInfo.Type == TargetTypePage && !ev.TargetInfo.Attached {
				m.handleNewTarget(ctx, ev.TargetInfo)
			}

		case *target.EventTargetDestroyed:
			if string(ev.TargetID) == internalTargetID {
				m.log.Warn("anchor tab closed")
				browserCancel()
				return
			}
			m.handleTargetDestroyed(string(ev.TargetID))

		case *target.EventTargetInfoChanged:
			if ev.TargetInfo.Type == TargetTypePage {
				m.handleTargetInfoChanged(ctx, ev.TargetInfo)
			}
		}
	})

	for _, tab := range initialTabs {
		if isInternalURL(tab.URL) {
			continue
		}
		m.handleNewTarget(ctx, &target.Info{
			TargetID: target.ID(tab.TargetID),
			Type:     tab.Type,
			Title:    tab.Title,
			URL:      tab.URL,
		})
	}

	m.connected.Store(true)
	m.log.Info("mirroring started",
		zap.String("session", m.tabRegistry.SessionID()),
		zap.Int("existing_tabs", len(initialTabs)),
	)

	<-browserCtx.Done()
	return true, nil
}

// cleanupOrphanedAnchorTabs closes internal tabs left behind by earlier
// connections. Only the current anchor survives.
func (m *Manager) cleanupOrphanedAnchorTabs(tabs []*Tab) {
	m.mu.RLock()
	internalTargetID := m.internalTargetID
	m.mu.RUnlock()

	for _, tab := range tabs {
		if tab.TargetID == internalTargetID || !isInternalURL(tab.URL) {
			continue
		}
		if err := CloseTab(m.config.ChromePort, tab.TargetID); err != nil {
			m.log.Debug("failed to close orphaned anchor tab",
				zap.String("target", tab.TargetID),
				zap.Error(err),
			)
			continue
		}
		m.log.Debug("closed orphaned anchor tab", zap.String("target", tab.TargetID))
	}
}

// handleNewTarget starts mirroring a tab.
func (m *Manager) handleNewTarget(ctx context.Context, info *target.Info) {
	targetID := string(info.TargetID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if targetID == m.internalTargetID || m.browserCtx == nil {
		return
	}
	if _, exists := m.tabMonitors[targetID]; exists {
		return
	}

	tabID := m.tabRegistry.GetOrCreateTabID(targetID)
	site := logger.ExtractSite(info.URL)

	mon := monitor.NewDOMMonitor(
		ctx,
		targetID,
		tabID,
		site,
		info.Title,
		info.URL,
		m.tabRegistry.SessionID(),
		m.fileManager,
		m.config,
		monitor.WithLogger(m.log),
		monitor.WithMetrics(m.metrics),
	)
	m.tabMonitors[targetID] = mon

	browserCtx := m.browserCtx
	go func() {
		if err := mon.Start(browserCtx); err != nil {
			m.log.Warn("tab monitor failed", zap.String("tab", tabID), zap.Error(err))
		}
	}()

	m.log.Info("mirroring tab",
		zap.String("tab", tabID),
		zap.String("target", targetID),
		zap.String("site", site),
	)
}

// handleTargetDestroyed stops the monitor of a closed tab.
func (m *Manager) handleTargetDestroyed(targetID string) {
	m.mu.Lock()
	mon, exists := m.tabMonitors[targetID]
	if !exists {
		m.mu.Unlock()
		return
	}
	delete(m.tabMonitors, targetID)
	m.mu.Unlock()

	mon.Stop()
	m.tabRegistry.RemoveTarget(targetID)

	m.log.Info("tab closed", zap.String("tab", mon.TabID()))
}

// handleTargetInfoChanged follows URL changes. A page target that is not
// mirrored yet, for example one created before the listener was attached,
// is picked up here.
func (m *Manager) handleTargetInfoChanged(ctx context.Context, info *target.Info) {
	targetID := string(info.TargetID)

	m.mu.RLock()
	mon, exists := m.tabMonitors[targetID]
	m.mu.RUnlock()

	if !exists {
		if !isInternalURL(info.URL) {
			m.handleNewTarget(ctx, info)
		}
		return
	}

	newSite := logger.ExtractSite(info.URL)
	if mon.HandleSiteChange(newSite, info.URL) {
		m.log.Info("tab navigated to new site",
			zap.String("tab", mon.TabID()),
			zap.String("site", newSite),
		)
	}
}

// clearTabMonitors stops every monitor. It runs when a connection ends.
func (m *Manager) clearTabMonitors() {
	m.mu.Lock()
	monitors := make([]*monitor.DOMMonitor, 0, len(m.tabMonitors))
	for _, mon := range m.tabMonitors {
		monitors = append(monitors, mon)
	}
	m.tabMonitors = make(map[string]*monitor.DOMMonitor)
	m.browserCtx, m.browserCancel = nil, nil
	m.internalTargetID = ""
	m.mu.Unlock()

	for _, mon := range monitors {
		mon.Stop()
	}
}

// IsConnected reports whether a browser connection is established.
func (m *Manager) IsConnected() bool {
	return m.connected.Load()
}

// Stop shuts down the monitors, closes the log files and kills Chrome if
// the manager launched it. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.log.Info("shutting down")

		m.mu.RLock()
		cancel := m.browserCancel
		proc := m.chromeProcess
		m.mu.RUnlock()

		if cancel != nil {
			cancel()
		}
		m.clearTabMonitors()

		if err := m.fileManager.Close(); err != nil {
			m.log.Warn("error closing log files", zap.Error(err))
		}
		if proc != nil {
			if err := proc.Stop(); err != nil {
				m.log.Warn("error stopping chrome", zap.Error(err))
			}
		}

		m.log.Info("shutdown complete")
	})
}

// GetActiveTabCount returns the number of mirrored tabs.
func (m *Manager) GetActiveTabCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabMonitors)
}
