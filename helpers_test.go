package portalAuth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/permission"
	"github.com/MrEthical07/portalAuth/session"
)

// fakeGateway is a CredentialGateway double that counts calls per
// operation. Unset hooks succeed.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[gateway.Operation]int

	login          func(ctx context.Context, identifier, secret string) gateway.LoginResult
	requestOTP     func(ctx context.Context, email string) gateway.Result
	verifyOTP      func(ctx context.Context, email, otp string) gateway.Result
	changePassword func(ctx context.Context, email, otp, newSecret string) gateway.Result
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[gateway.Operation]int)}
}

func (g *fakeGateway) record(op gateway.Operation) {
	g.mu.Lock()
	g.calls[op]++
	g.mu.Unlock()
}

func (g *fakeGateway) Calls(op gateway.Operation) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *fakeGateway) Login(ctx context.Context, identifier, secret string) gateway.LoginResult {
	g.record(gateway.OpLogin)
	if g.login != nil {
		return g.login(ctx, identifier, secret)
	}
	return loginOK("u1", permission.RoleEmployee, "bearer-token")
}

func (g *fakeGateway) RequestOTP(ctx context.Context, email string) gateway.Result {
	g.record(gateway.OpRequestOTP)
	if g.requestOTP != nil {
		return g.requestOTP(ctx, email)
	}
	return gateway.Result{OK: true, Status: 200}
}

func (g *fakeGateway) VerifyOTP(ctx context.Context, email, otp string) gateway.Result {
	g.record(gateway.OpVerifyOTP)
	if g.verifyOTP != nil {
		return g.verifyOTP(ctx, email, otp)
	}
	return gateway.Result{OK: true, Status: 200}
}

func (g *fakeGateway) ChangePassword(ctx context.Context, email, otp, newSecret string) gateway.Result {
	g.record(gateway.OpChangePassword)
	if g.changePassword != nil {
		return g.changePassword(ctx, email, otp, newSecret)
	}
	return gateway.Result{OK: true, Status: 200}
}

func loginOK(id string, role permission.Role, token string) gateway.LoginResult {
	return gateway.LoginResult{
		Result: gateway.Result{OK: true, Status: 200},
		User:   &session.User{ID: id, DisplayName: "Test User", Email: id + "@example.com", Role: role},
		Token:  token,
	}
}

func rejected() gateway.Result {
	return gateway.Result{OK: false, Kind: gateway.KindRejected, Status: 401, Message: "invalid"}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Store.Backend = StoreMemory
	cfg.PasswordReset.RequestInterval = 0
	cfg.PasswordReset.RequestBurst = 0
	return cfg
}

type managerOptions struct {
	config  Config
	backend session.Backend
	clock   *fakeClock
	sink    AuditSink
}

func buildTestManager(t *testing.T, gw CredentialGateway, opts managerOptions) *Manager {
	t.Helper()

	cfg := opts.config
	if cfg.PasswordReset.MaxAttempts == 0 {
		cfg = testConfig()
	}
	backend := opts.backend
	if backend == nil {
		backend = session.NewMemoryBackend()
	}

	b := New().
		WithConfig(cfg).
		WithGateway(gw).
		WithSessionBackend(backend)
	if opts.clock != nil {
		b = b.WithClock(opts.clock.Now)
	}
	if opts.sink != nil {
		b = b.WithAuditSink(opts.sink)
	}

	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// reopen builds a second manager over the same backend, as a process
// restart would.
func reopen(t *testing.T, backend session.Backend) *Manager {
	t.Helper()
	return buildTestManager(t, newFakeGateway(), managerOptions{backend: backend})
}
