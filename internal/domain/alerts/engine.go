package alerts

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
)

const (
	defaultCooldown = 15 * time.Minute
	defaultSeverity = "warning"
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert is one firing or resolved rule instance.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"ruleName"`
	System     string     `json:"system"`
	SnapshotID string     `json:"snapshotId"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Overall    float64    `json:"overallScore"`
	FiredAt    time.Time  `json:"firedAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	State      string     `json:"state"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient sets the webhook client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine is safe for concurrent use. An Engine without rules is a no-op.
type Engine struct {
	rules    []compiledRule
	webhooks []Webhook

	mu       sync.Mutex
	active   map[string]*Alert    // key: rule:system
	lastFire map[string]time.Time // cooldown per key
	history  []*Alert

	client     *http.Client
	now        func() time.Time
	logger     logger.Logger
	deliveries sync.WaitGroup
}

// New compiles rules. Any invalid rule fails construction.
func New(rules []Rule, webhooks []Webhook, opts ...Option) (*Engine, error) {
	env, err := newEnv()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		webhooks: webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		logger:   logger.Get().Named("alerts"),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, r := range rules {
		cr, err := compile(env, r)
		if err != nil {
			return nil, err
		}
		if cr.Severity == "" {
			cr.Severity = defaultSeverity
		}
		if cr.Cooldown <= 0 {
			cr.Cooldown = defaultCooldown
		}
		e.rules = append(e.rules, cr)
	}
	return e, nil
}

// Evaluate tests every rule against s. Fired and resolved alerts are
// delivered to webhooks asynchronously.
func (e *Engine) Evaluate(ctx context.Context, s model.Snapshot) {
	if len(e.rules) == 0 {
		return
	}
	now := e.now().UTC()

	for _, rule := range e.rules {
		fires, err := rule.eval(s)
		if err != nil {
			e.logger.Warn(ctx, "alert rule evaluation failed", logger.String("rule", rule.Name), logger.Error(err))
			continue
		}
		key := rule.Name + ":" + s.Name

		e.mu.Lock()
		var notify *Alert
		switch {
		case fires && now.Sub(e.lastFire[key]) > rule.Cooldown:
			a := &Alert{
				ID:         fmt.Sprintf("%s:%s:%d", rule.Name, s.Name, now.UnixNano()),
				RuleName:   rule.Name,
				System:     s.Name,
				SnapshotID: s.ID,
				Severity:   rule.Severity,
				Overall:    s.Score.Overall,
				Message:    fmt.Sprintf("[%s] %s fired on %s: %s (overall %.0f)", rule.Severity, rule.Name, s.Name, rule.Expr, s.Score.Overall),
				FiredAt:    now,
				State:      StateFiring,
			}
			e.active[key] = a
			e.lastFire[key] = now
			cp := *a
			notify = &cp
		case !fires:
			if a, ok := e.active[key]; ok {
				resolved := now
				a.State = StateResolved
				a.ResolvedAt = &resolved
				delete(e.active, key)
				e.history = append(e.history, a)
				if len(e.history) > maxHistoryLen {
					e.history = e.history[len(e.history)-maxHistoryLen:]
				}
				cp := *a
				notify = &cp
			}
		}
		e.mu.Unlock()

		if notify == nil {
			continue
		}
		if notify.State == StateFiring {
			metrics.RecordAlertFired(rule.Name, rule.Severity)
			e.logger.Warn(ctx, "alert fired",
				logger.String("rule", rule.Name),
				logger.String("system", s.Name),
				logger.Float64("overall", s.Score.Overall),
				logger.String("severity", rule.Severity),
			)
		} else {
			e.logger.Info(ctx, "alert resolved", logger.String("rule", rule.Name), logger.String("system", s.Name))
		}
		e.deliveries.Add(1)
		go func(a *Alert) {
			defer e.deliveries.Done()
			e.deliver(context.WithoutCancel(ctx), a)
		}(notify)
	}
}

// Active returns firing alerts plus alerts resolved within the last hour,
// newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().UTC().Add(-recentWindow)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() {
	e.deliveries.Wait()
}
