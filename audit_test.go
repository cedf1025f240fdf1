package portalAuth

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/permission"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false

	gw := newFakeGateway()
	gw.login = func(context.Context, string, string) gateway.LoginResult {
		return gateway.LoginResult{Result: rejected()}
	}
	sink := &countingSink{}
	m := buildTestManager(t, gw, managerOptions{config: cfg, sink: sink})

	_, _ = m.Login(context.Background(), "alice", "wrong-password")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = true

	gw := newFakeGateway()
	gw.login = func(context.Context, string, string) gateway.LoginResult {
		return gateway.LoginResult{Result: rejected()}
	}
	sink := newCaptureSink(8)
	m := buildTestManager(t, gw, managerOptions{config: cfg, sink: sink})

	ctx := WithRequestID(context.Background(), "req-44")
	_, _ = m.Login(ctx, "alice", "super-secret-password")

	select {
	case ev := <-sink.events:
		if ev.EventType != auditEventLoginFailure {
			t.Fatalf("expected %s, got %q", auditEventLoginFailure, ev.EventType)
		}
		if ev.EventID == "" {
			t.Fatal("expected event id to be populated")
		}
		if ev.RequestID != "req-44" {
			t.Fatalf("expected request id req-44, got %q", ev.RequestID)
		}
		if ev.Error != string(auditErrInvalidCredentials) {
			t.Fatalf("expected invalid_credentials code, got %q", ev.Error)
		}
		if ev.Success {
			t.Fatal("expected failure event")
		}
		for _, v := range ev.Metadata {
			if v == "super-secret-password" {
				t.Fatal("sensitive password leaked in metadata")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink, nil)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink, nil)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		UserID:    "u1",
		RequestID: "r1",
		Success:   true,
	}
	sink.Emit(context.Background(), event)

	if !buf.Contains("login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"user_id\":\"u1\"") {
		t.Fatal("expected JSON log line to contain user id")
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{}, nil)

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	const (
		secret    = "correct-password-123"
		bearer    = "bearer-abc.def.ghi"
		otp       = "918273"
		newSecret = "brand-new-password"
	)
	gw := newFakeGateway()
	gw.login = func(context.Context, string, string) gateway.LoginResult {
		return loginOK("u1", permission.RoleHR, bearer)
	}

	sink := newCaptureSink(32)
	m := buildTestManager(t, gw, managerOptions{config: cfg, sink: sink})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice", secret); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := m.RequestPasswordReset(ctx, "a@b.com"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := m.VerifyAndChangePassword(ctx, "a@b.com", otp, newSecret); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	// Close drains the queue into the sink.
	_ = m.Close()
	close(sink.events)

	events := make([]AuditEvent, 0, 8)
	for ev := range sink.events {
		events = append(events, ev)
	}
	if len(events) < 5 {
		t.Fatalf("expected at least 5 audit events, got %d", len(events))
	}

	for _, ev := range events {
		for _, needle := range []string{secret, bearer, otp, newSecret} {
			if stringContains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if stringContains(k, needle) || stringContains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}

func TestAuditSlogSinkWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := NewSlogSink(logger)

	event := newAuditEvent(time.Now(), auditEventOTPVerify)
	event.Error = string(auditErrAttemptsExceeded)
	event.Metadata = map[string]string{"email": "a@b.com"}
	sink.Emit(context.Background(), event)

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"event_type":"otp_verify"`, `"error":"attempts_exceeded"`, `"meta.email":"a@b.com"`, event.EventID} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidOTP, auditErrInvalidCredentials},
		{ErrTooManyAttempts, auditErrAttemptsExceeded},
		{ErrNetwork, auditErrNetwork},
		{ErrMalformedResponse, auditErrMalformedResponse},
		{ErrRoleNotPermitted, auditErrRoleNotPermitted},
		{ErrResetNotVerified, auditErrResetState},
		{ErrSessionStoreUnavailable, auditErrUnavailable},
		{ErrLoginSuperseded, auditErrSuperseded},
	}
	for _, tc := range tests {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stringContains(string(b.buf), v)
}

func stringContains(s, sub string) bool {
	if len(sub) == 0 {
		return true
	}
	if len(sub) > len(s) {
		return false
	}
	for i := 0; i <= len(s)-len(sub); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

type panicSink struct {
	countingSink
}

func (s *panicSink) Emit(ctx context.Context, event AuditEvent) {
	s.countingSink.Emit(ctx, event)
	if event.EventType == "boom" {
		panic("sink failure")
	}
}

func TestAuditDispatcherSurvivesPanickingSink(t *testing.T) {
	var logs bytes.Buffer
	sink := &panicSink{}
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
	}, sink, slog.New(slog.NewTextHandler(&logs, nil)))

	ctx := context.Background()
	dispatcher.Emit(ctx, AuditEvent{EventType: "boom"})
	dispatcher.Emit(ctx, AuditEvent{EventType: "after"})
	dispatcher.Close()

	if sink.Count() != 2 {
		t.Fatalf("expected both events delivered, got %d", sink.Count())
	}
	if dispatcher.SinkPanics() != 1 {
		t.Fatalf("expected one sink panic, got %d", dispatcher.SinkPanics())
	}
	if !strings.Contains(logs.String(), "audit sink panicked") {
		t.Fatalf("expected panic to be logged, got %q", logs.String())
	}
}
