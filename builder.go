package portalAuth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/internal/limiters"
	"github.com/MrEthical07/portalAuth/internal/stores"
	"github.com/MrEthical07/portalAuth/permission"
	"github.com/MrEthical07/portalAuth/session"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
)

// Builder assembles a [Manager].
//
// Builder instances are intended to be configured during initialization and
// then discarded; Build may be called once.
type Builder struct {
	config Config

	gateway CredentialGateway
	backend session.Backend
	redis   redis.UniversalClient
	policy  *permission.Policy

	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithGateway injects the identity-provider client. Without it Build dials
// Gateway.BaseURL over HTTP.
func (b *Builder) WithGateway(gw CredentialGateway) *Builder {
	b.gateway = gw
	return b
}

// WithSessionBackend overrides the backend selected by Store.Backend.
func (b *Builder) WithSessionBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis supplies a Redis client for the redis backend. The caller keeps
// ownership of the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPolicy overrides the role-to-portal table.
func (b *Builder) WithPolicy(policy *permission.Policy) *Builder {
	b.policy = policy
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. Events are dispatched only when
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock replaces time.Now for session timestamps, reset expiry and
// request throttling.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Manager. It performs no
// network I/O.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	cfg.Sanitize()
	if err := cfg.validate(b.redis != nil || b.backend != nil); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		config:   cfg,
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
		now:      now,
		resets:   stores.NewPasswordResetStore(now),
		loginSem: semaphore.NewWeighted(1),
		resetSem: semaphore.NewWeighted(1),
	}

	gw, err := b.buildGateway(cfg, m.metrics)
	if err != nil {
		return nil, err
	}
	m.gateway = gw

	backend, closers, err := b.buildBackend(cfg)
	if err != nil {
		return nil, err
	}
	m.store = session.NewStore(backend, cfg.Store.Prefix)
	m.closers = closers

	policy := b.policy
	if policy == nil {
		if cfg.Policy.File != "" {
			policy, err = permission.LoadPolicyFile(cfg.Policy.File)
			if err != nil {
				closeAll(closers)
				return nil, err
			}
		} else {
			policy = permission.DefaultPolicy()
		}
	}
	m.policy = policy

	m.limiter = limiters.NewOTPRequestLimiter(limiters.OTPRequestConfig{
		Interval: cfg.PasswordReset.RequestInterval,
		Burst:    cfg.PasswordReset.RequestBurst,
	}, now)

	m.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	m.initFlowDeps()

	b.built = true
	return m, nil
}

func (b *Builder) buildGateway(cfg Config, metrics *Metrics) (CredentialGateway, error) {
	if b.gateway != nil {
		return b.gateway, nil
	}
	if cfg.Gateway.BaseURL == "" {
		return nil, ErrGatewayRequired
	}

	paths := gateway.Paths{
		Login:          cfg.Gateway.LoginPath,
		RequestOTP:     cfg.Gateway.RequestOTPPath,
		VerifyOTP:      cfg.Gateway.VerifyOTPPath,
		ChangePassword: cfg.Gateway.ChangePasswordPath,
	}
	client, err := gateway.New(gateway.Options{
		BaseURL: cfg.Gateway.BaseURL,
		Paths:   paths,
		Timeout: cfg.Gateway.Timeout,
		Observe: func(_ gateway.Operation, _ gateway.Kind, elapsed time.Duration) {
			metrics.Observe(MetricGatewayLatency, elapsed)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequired, err)
	}
	return client, nil
}

func (b *Builder) buildBackend(cfg Config) (session.Backend, []func() error, error) {
	if b.backend != nil {
		return b.backend, nil, nil
	}

	switch cfg.Store.Backend {
	case StoreMemory:
		return session.NewMemoryBackend(), nil, nil
	case StoreRedis:
		if b.redis != nil {
			return session.NewRedisBackend(b.redis, cfg.Store.TTL), nil, nil
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		return session.NewRedisBackend(client, cfg.Store.TTL), []func() error{client.Close}, nil
	default:
		path := cfg.Store.FilePath
		if path == "" {
			path = DefaultSessionFile()
		}
		return session.NewFileBackend(path), nil, nil
	}
}

func closeAll(closers []func() error) {
	for _, closeFn := range closers {
		_ = closeFn()
	}
}

type baseURLer interface {
	BaseURL() string
}

func gatewayUsesTLS(gw CredentialGateway, cfg GatewayConfig) bool {
	raw := cfg.BaseURL
	if withURL, ok := gw.(baseURLer); ok {
		raw = withURL.BaseURL()
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https"
}
