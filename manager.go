package portalAuth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/portalAuth/internal/flows"
	"github.com/MrEthical07/portalAuth/internal/limiters"
	"github.com/MrEthical07/portalAuth/internal/stores"
	"github.com/MrEthical07/portalAuth/permission"
	"github.com/MrEthical07/portalAuth/session"
	"golang.org/x/sync/semaphore"
)

// Manager owns the live session of one application instance. It is the
// only writer of the persisted session keys and is safe for concurrent use.
//
// Build one with [New]. Call [Manager.Restore] once at start-up and
// [Manager.Close] on shutdown.
type Manager struct {
	config  Config
	gateway CredentialGateway
	store   *session.Store
	policy  *permission.Policy
	resets  *stores.PasswordResetStore
	limiter *limiters.OTPRequestLimiter
	logger  *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher
	now     func() time.Time

	loginSem *semaphore.Weighted
	resetSem *semaphore.Weighted

	// commitMu orders store writes with the transitions they persist and is
	// taken before mu. mu guards current and generation and is never held
	// across backend I/O.
	commitMu   sync.Mutex
	mu         sync.RWMutex
	current    *session.Session
	generation uint64

	flowDeps flows.Deps
	closers  []func() error
	closed   atomic.Bool
}

func (m *Manager) metricInc(id int) {
	m.metrics.Inc(MetricID(id))
}

func (m *Manager) initFlowDeps() {
	gatewayErrors := flows.GatewayErrors{
		InvalidCredentials: ErrInvalidCredentials,
		Network:            ErrNetwork,
		MalformedResponse:  ErrMalformedResponse,
	}

	m.flowDeps = flows.Deps{
		Login: flows.LoginDeps{
			Now:       m.now,
			Logger:    m.logger,
			Login:     m.gateway.Login,
			MetricInc: m.metricInc,
			EmitAudit: m.emitAudit,
			Metrics: flows.LoginMetrics{
				LoginSuccess:           int(MetricLoginSuccess),
				LoginFailure:           int(MetricLoginFailure),
				LoginNetworkFailure:    int(MetricLoginNetworkFailure),
				LoginMalformedResponse: int(MetricLoginMalformedResponse),
				LoginTokenMissing:      int(MetricLoginTokenMissing),
				LoginSuperseded:        int(MetricLoginSuperseded),
				SessionStoreFailure:    int(MetricSessionStoreFailure),
			},
			Events: flows.LoginEvents{
				LoginSuccess:      auditEventLoginSuccess,
				LoginFailure:      auditEventLoginFailure,
				LoginTokenMissing: auditEventLoginTokenMissing,
			},
			Errors: flows.LoginErrors{
				GatewayErrors:    gatewayErrors,
				Superseded:       ErrLoginSuperseded,
				StoreUnavailable: ErrSessionStoreUnavailable,
			},
		},
		Restore: flows.RestoreDeps{
			Now:       m.now,
			Logger:    m.logger,
			Load:      m.store.Load,
			MetricInc: m.metricInc,
			EmitAudit: m.emitAudit,
			Metrics: flows.RestoreMetrics{
				RestoreSuccess:        int(MetricRestoreSuccess),
				RestoreEmpty:          int(MetricRestoreEmpty),
				RestoreCorrupt:        int(MetricRestoreCorrupt),
				RestoreBackendFailure: int(MetricRestoreBackendFailure),
				RestoreTokenMissing:   int(MetricRestoreTokenMissing),
				RestoreTokenExpired:   int(MetricRestoreTokenExpired),
			},
			Events: flows.RestoreEvents{
				RestoreSuccess: auditEventRestoreSuccess,
				RestoreCorrupt: auditEventRestoreCorrupt,
			},
		},
		Logout: flows.LogoutDeps{
			Logger:    m.logger,
			Clear:     m.clearSession,
			MetricInc: m.metricInc,
			EmitAudit: m.emitAudit,
			Metrics: flows.LogoutMetrics{
				Logout:              int(MetricLogout),
				SessionStoreFailure: int(MetricSessionStoreFailure),
			},
			Event: auditEventLogout,
		},
		UpdateUser: flows.UpdateUserDeps{
			Logger:    m.logger,
			Current:   m.snapshot,
			Commit:    m.commitUser,
			MetricInc: m.metricInc,
			EmitAudit: m.emitAudit,
			Metric:    int(MetricUserUpdated),
			Event:     auditEventUserUpdated,
			Errors: flows.UpdateUserErrors{
				NotAuthenticated: ErrNotAuthenticated,
				InvalidPatch:     ErrInvalidUserPatch,
				Superseded:       ErrLoginSuperseded,
			},
		},
		PasswordReset: flows.PasswordResetDeps{
			MaxAttempts:    m.config.PasswordReset.MaxAttempts,
			TTL:            m.config.PasswordReset.OTPTTL,
			Logger:         m.logger,
			Store:          m.resets,
			AllowRequest:   m.limiter.Allow,
			RequestOTP:     m.gateway.RequestOTP,
			VerifyOTP:      m.gateway.VerifyOTP,
			ChangePassword: m.gateway.ChangePassword,
			MetricInc:      m.metricInc,
			EmitAudit:      m.emitAudit,
			Metrics: flows.PasswordResetMetrics{
				OTPRequest:                int(MetricOTPRequest),
				OTPRequestFailure:         int(MetricOTPRequestFailure),
				OTPRequestRateLimited:     int(MetricOTPRequestRateLimited),
				OTPVerifySuccess:          int(MetricOTPVerifySuccess),
				OTPVerifyFailure:          int(MetricOTPVerifyFailure),
				OTPAttemptsExceeded:       int(MetricOTPAttemptsExceeded),
				OTPExpired:                int(MetricOTPExpired),
				PasswordChangeSuccess:     int(MetricPasswordChangeSuccess),
				PasswordChangeFailure:     int(MetricPasswordChangeFailure),
				PasswordChangeNotVerified: int(MetricPasswordChangeNotVerified),
			},
			Events: flows.PasswordResetEvents{
				OTPRequest:     auditEventOTPRequest,
				OTPVerify:      auditEventOTPVerify,
				PasswordChange: auditEventPasswordChange,
			},
			Errors: flows.PasswordResetErrors{
				GatewayErrors:    gatewayErrors,
				InvalidEmail:     ErrInvalidEmail,
				InvalidOTP:       ErrInvalidOTP,
				InvalidNewSecret: ErrInvalidNewSecret,
				RateLimited:      ErrOTPRequestRateLimited,
				NotRequested:     ErrResetNotRequested,
				NotVerified:      ErrResetNotVerified,
				Expired:          ErrResetExpired,
				TooManyAttempts:  ErrTooManyAttempts,
			},
		},
	}
}

/*
====================================
SESSION LIFECYCLE
====================================
*/

// Restore rehydrates the persisted session. Corrupt entries are deleted and
// backend failures are logged; both leave the manager unauthenticated. It
// never returns an error.
func (m *Manager) Restore(ctx context.Context) (*Session, bool) {
	if m.closed.Load() {
		return nil, false
	}
	ctx = ensureContext(ctx)

	generation := m.currentGeneration()

	deps := m.flowDeps.Restore
	deps.Commit = func(sess *session.Session) bool {
		m.commitMu.Lock()
		defer m.commitMu.Unlock()
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.generation != generation {
			return false
		}
		m.current = sess.Clone()
		m.generation++
		return true
	}

	sess := flows.RunRestore(ctx, deps)
	if sess != nil {
		return sess, true
	}

	m.commitMu.Lock()
	m.mu.Lock()
	if m.generation == generation && m.current != nil {
		m.current = nil
		m.generation++
	}
	m.mu.Unlock()
	m.commitMu.Unlock()
	return nil, false
}

// Login authenticates with the identity provider and persists the session.
// Only one login may be outstanding; a concurrent call fails with
// [ErrOperationInFlight]. A logout that lands while the provider call is in
// flight wins, and the login returns [ErrLoginSuperseded].
func (m *Manager) Login(ctx context.Context, identifier, secret string) (*Session, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	if !m.loginSem.TryAcquire(1) {
		m.metrics.Inc(MetricOperationInFlight)
		return nil, ErrOperationInFlight
	}
	defer m.loginSem.Release(1)
	ctx = ensureContext(ctx)

	generation := m.currentGeneration()

	deps := m.flowDeps.Login
	deps.Commit = func(ctx context.Context, sess *session.Session) error {
		m.commitMu.Lock()
		defer m.commitMu.Unlock()
		if m.currentGeneration() != generation {
			return ErrLoginSuperseded
		}
		if err := m.store.Save(ctx, sess); err != nil {
			return fmt.Errorf("%w: %w", ErrSessionStoreUnavailable, err)
		}
		m.mu.Lock()
		m.current = sess.Clone()
		m.generation++
		m.mu.Unlock()
		return nil
	}

	return flows.RunLogin(ctx, identifier, secret, deps)
}

// Logout drops the live session and deletes the persisted keys. The live
// session is gone even when the returned error reports a failed delete.
// Logout is idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	return flows.RunLogout(ensureContext(ctx), m.flowDeps.Logout)
}

func (m *Manager) clearSession(ctx context.Context) (string, error) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	var userID string
	if m.current.IsAuthenticated() {
		userID = m.current.User.ID
	}
	m.current = nil
	m.generation++
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return userID, fmt.Errorf("%w: %w", ErrSessionStoreUnavailable, err)
	}
	return userID, nil
}

// UpdateUser merges patch into the signed-in user record and persists it.
// The bearer token is left unchanged.
func (m *Manager) UpdateUser(ctx context.Context, patch UserPatch) (*Session, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	return flows.RunUpdateUser(ensureContext(ctx), patch, m.flowDeps.UpdateUser)
}

func (m *Manager) snapshot() (*session.Session, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone(), m.generation
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

func (m *Manager) commitUser(ctx context.Context, user *session.User, generation uint64) (*session.Session, error) {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	current, gen := m.snapshot()
	if !current.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	if gen != generation {
		return nil, ErrLoginSuperseded
	}
	if err := m.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStoreUnavailable, err)
	}

	next := current
	next.User = user.Clone()
	m.mu.Lock()
	m.current = next
	m.generation++
	m.mu.Unlock()
	return next.Clone(), nil
}

/*
====================================
SESSION QUERIES
====================================
*/

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.IsAuthenticated()
}

// Current returns a copy of the live session, or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.current.IsAuthenticated() {
		return nil
	}
	return m.current.Clone()
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (m *Manager) CurrentUser() *User {
	if sess := m.Current(); sess != nil {
		return sess.User
	}
	return nil
}

// HomePortal returns the landing path for the signed-in role, or the
// policy's default portal when nobody is signed in.
func (m *Manager) HomePortal() string {
	sess := m.Current()
	if sess == nil {
		return m.policy.DefaultPortal()
	}
	return m.policy.HomePortalFor(sess.Role())
}

// Policy returns the role-to-portal table.
func (m *Manager) Policy() *permission.Policy {
	return m.policy
}

// LoginPath is where denied navigations are redirected.
func (m *Manager) LoginPath() string {
	return m.config.Policy.LoginPath
}

/*
====================================
ACCESS CONTROL
====================================
*/

// Admit decides whether the live session may enter a route guarded by
// roles. It is evaluated on every call; nothing is cached.
func (m *Manager) Admit(roles ...Role) Decision {
	return m.admit(m.Current(), permission.NewRoleSet(roles...), "")
}

// AdmitPath decides access to urlPath using the policy table. Paths the
// policy does not map require only authentication.
func (m *Manager) AdmitPath(urlPath string) Decision {
	required, _ := m.policy.RolesForPath(urlPath)
	return m.admit(m.Current(), required, urlPath)
}

// AdmitSession is [Manager.Admit] for an explicit session, typically one
// carried in a request context.
func (m *Manager) AdmitSession(sess *Session, roles ...Role) Decision {
	return m.admit(sess, permission.NewRoleSet(roles...), "")
}

func (m *Manager) admit(sess *Session, required permission.RoleSet, urlPath string) Decision {
	var principal permission.Principal
	if sess != nil {
		principal = sess
	}

	decision := permission.Admit(principal, required)
	if decision.Admitted() {
		m.metrics.Inc(MetricAccessAdmitted)
		return decision
	}

	m.metrics.Inc(MetricAccessRedirected)
	var userID string
	if sess.IsAuthenticated() {
		userID = sess.User.ID
	}
	m.emitAudit(context.Background(), auditEventAccessDenied, false, userID, decision.Err(), func() map[string]string {
		meta := map[string]string{"required": joinRoles(required)}
		if urlPath != "" {
			meta["path"] = urlPath
		}
		return meta
	})
	return decision
}

func joinRoles(set permission.RoleSet) string {
	roles := set.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

/*
====================================
LIFECYCLE
====================================
*/

// MetricsSnapshot returns a point-in-time copy of the counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full queue.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

// Close flushes pending audit events and releases clients the manager
// created. The live session is kept in the store.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.audit.Close()

	var firstErr error
	for _, closeFn := range m.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
