package flows

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/portalAuth/gateway"
	"github.com/MrEthical07/portalAuth/jwt"
	"github.com/MrEthical07/portalAuth/session"
)

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess           int
	LoginFailure           int
	LoginNetworkFailure    int
	LoginMalformedResponse int
	LoginTokenMissing      int
	LoginSuperseded        int
	SessionStoreFailure    int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess      string
	LoginFailure      string
	LoginTokenMissing string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	GatewayErrors
	Superseded       error
	StoreUnavailable error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Now    func() time.Time
	Logger *slog.Logger

	Login func(ctx context.Context, identifier, secret string) gateway.LoginResult
	// Commit persists sess and makes it live. It returns Errors.Superseded
	// when a logout happened while the gateway call was in flight.
	Commit func(ctx context.Context, sess *session.Session) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates against the identity provider and commits the
// resulting session. Nothing is committed on any failure path.
func RunLogin(ctx context.Context, identifier, secret string, deps LoginDeps) (*session.Session, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	normalizeCommon(&deps.Logger, &deps.MetricInc, &deps.EmitAudit)

	identifier = strings.TrimSpace(identifier)
	meta := func() map[string]string {
		return map[string]string{"identifier": identifier}
	}

	if identifier == "" || secret == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "blank_input"}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	res := deps.Login(ctx, identifier, secret)
	if !res.OK {
		err := mapGatewayFailure(res.Kind, deps.Errors.GatewayErrors)
		switch res.Kind {
		case gateway.KindNetwork:
			deps.MetricInc(deps.Metrics.LoginNetworkFailure)
			deps.Logger.Warn("portalAuth: login transport failure", "kind", res.Kind.String())
		case gateway.KindMalformed:
			deps.MetricInc(deps.Metrics.LoginMalformedResponse)
			deps.Logger.Warn("portalAuth: identity provider reply undecodable", "status", res.Status)
		default:
			deps.MetricInc(deps.Metrics.LoginFailure)
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, meta)
		return nil, err
	}

	if res.User == nil {
		deps.MetricInc(deps.Metrics.LoginMalformedResponse)
		deps.Logger.Warn("portalAuth: identity provider reported success without a user record", "status", res.Status)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.MalformedResponse, func() map[string]string {
			return map[string]string{"identifier": identifier, "reason": "missing_user"}
		})
		return nil, deps.Errors.MalformedResponse
	}

	sess := &session.Session{
		User:            res.User,
		Token:           res.Token,
		AuthenticatedAt: deps.Now(),
	}
	if strings.TrimSpace(res.Token) == "" {
		sess.Token = ""
		sess.TokenMissing = true
		deps.MetricInc(deps.Metrics.LoginTokenMissing)
		deps.Logger.Warn("portalAuth: identity provider issued no bearer token; session is degraded", "user_id", res.User.ID)
		deps.EmitAudit(ctx, deps.Events.LoginTokenMissing, true, res.User.ID, nil, nil)
	} else if claims, err := jwt.Inspect(res.Token); err == nil {
		sess.TokenExpiresAt = claims.ExpiresAt
	}

	if err := deps.Commit(ctx, sess); err != nil {
		if errors.Is(err, deps.Errors.Superseded) {
			deps.MetricInc(deps.Metrics.LoginSuperseded)
			deps.Logger.Debug("portalAuth: discarding login result from a stale session generation", "user_id", res.User.ID)
		} else {
			deps.MetricInc(deps.Metrics.SessionStoreFailure)
			deps.Logger.Error("portalAuth: persisting session failed", "error", err)
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, res.User.ID, err, meta)
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, res.User.ID, nil, func() map[string]string {
		return map[string]string{"identifier": identifier, "role": string(res.User.Role)}
	})
	return sess.Clone(), nil
}
