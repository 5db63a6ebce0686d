package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	"FlowSight/internal/service/ratelimit"
	"FlowSight/pkg/config"
	"FlowSight/pkg/logger"
	"FlowSight/pkg/queue"
)

// MessageTypeAlert is the queue message type for async alert dispatch.
const MessageTypeAlert = "signal.alert"

const rateLimitKey = "alerts"

// Manager turns signals into alerts and fans them out to the configured
// notifiers. Duplicate signals inside the dedup window are suppressed, and a
// token bucket caps total alert volume per hour.
type Manager struct {
	cfg       config.AlertsConfig
	log       *logger.Logger
	notifiers []drepo.Notifier
	limiter   *ratelimit.Limiter
	publisher queue.QueueService // nil means synchronous dispatch

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewManager(cfg config.AlertsConfig, log *logger.Logger, notifiers []drepo.Notifier, publisher queue.QueueService) *Manager {
	return &Manager{
		cfg:       cfg,
		log:       log,
		notifiers: notifiers,
		limiter:   ratelimit.New(),
		publisher: publisher,
		lastSent:  make(map[string]time.Time),
	}
}

// HandleSignal builds an alert from the signal and dispatches it, honoring
// dedup and rate limits. Suppressed signals return nil.
func (m *Manager) HandleSignal(ctx context.Context, s *models.SignalEvent) error {
	if s == nil {
		return nil
	}

	fp := fingerprint(s)
	if m.isDuplicate(fp) {
		m.log.Debug("alert suppressed by dedup window",
			logger.String("symbol", s.Symbol),
			logger.String("type", string(s.Type)))
		return nil
	}

	hourly := float64(m.cfg.MaxAlertsPerHour)
	if hourly > 0 && !m.limiter.Allow(rateLimitKey, hourly, hourly/3600) {
		m.log.Warn("alert suppressed by hourly rate limit",
			logger.String("symbol", s.Symbol),
			logger.String("type", string(s.Type)))
		return nil
	}

	m.markSent(fp)
	alert := BuildAlert(s)

	if m.publisher != nil {
		if err := m.publisher.PublishMessage(ctx, MessageTypeAlert, alert); err != nil {
			m.log.Error("alert enqueue failed, dispatching inline", logger.Error(err))
			return m.Dispatch(ctx, alert)
		}
		return nil
	}
	return m.Dispatch(ctx, alert)
}

// Dispatch delivers one alert to every notifier. Notifier failures are
// logged, not fatal; the first error is returned for visibility.
func (m *Manager) Dispatch(ctx context.Context, alert *models.Alert) error {
	var first error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			m.log.Error("notifier failed",
				logger.String("notifier", n.Name()),
				logger.Error(err))
			if first == nil {
				first = fmt.Errorf("notifier %s: %w", n.Name(), err)
			}
		}
	}
	return first
}

func (m *Manager) isDuplicate(fp string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastSent[fp]
	return ok && time.Since(last) < m.cfg.DedupWindow
}

func (m *Manager) markSent(fp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSent[fp] = time.Now()

	// sweep stale fingerprints opportunistically
	for k, t := range m.lastSent {
		if time.Since(t) > 2*m.cfg.DedupWindow {
			delete(m.lastSent, k)
		}
	}
}

func fingerprint(s *models.SignalEvent) string {
	return s.Symbol + "|" + string(s.Type)
}

// BuildAlert formats a signal into a notification.
func BuildAlert(s *models.SignalEvent) *models.Alert {
	return &models.Alert{
		Timestamp: s.Timestamp,
		Priority:  priorityFor(s),
		Title:     fmt.Sprintf("%s %s @ %.4f", s.Symbol, s.Type, s.Price),
		Message:   formatMessage(s),
		Signal:    s,
	}
}

func priorityFor(s *models.SignalEvent) models.AlertPriority {
	switch {
	case s.Confidence >= 0.9:
		return models.PriorityCritical
	case s.Confidence >= 0.75:
		return models.PriorityHigh
	case s.Confidence >= 0.6:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func formatMessage(s *models.SignalEvent) string {
	msg := fmt.Sprintf("%s %s at %.4f (confidence %.0f%%)",
		s.Symbol, s.Type, s.Price, s.Confidence*100)
	if s.Conditions.TPOEvent != "" {
		msg += fmt.Sprintf("\nstructure: %s", s.Conditions.TPOEvent)
	}
	if s.VWAP != nil {
		msg += fmt.Sprintf("\nvwap: %.4f (slope %.4f)", s.VWAP.VWAP, s.VWAP.Slope)
	}
	if s.OrderFlow != nil {
		msg += fmt.Sprintf("\ndelta: %.2f cvd: %.2f trend: %s",
			s.OrderFlow.Delta, s.OrderFlow.CumulativeDelta, s.OrderFlow.Trend)
	}
	return msg
}
