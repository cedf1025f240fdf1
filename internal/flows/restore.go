package flows

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/portalAuth/jwt"
	"github.com/MrEthical07/portalAuth/session"
)

// RestoreMetrics carries metric IDs needed by the restore flow.
type RestoreMetrics struct {
	RestoreSuccess        int
	RestoreEmpty          int
	RestoreCorrupt        int
	RestoreBackendFailure int
	RestoreTokenMissing   int
	RestoreTokenExpired   int
}

// RestoreEvents carries audit event names used by the restore flow.
type RestoreEvents struct {
	RestoreSuccess string
	RestoreCorrupt string
}

// RestoreDeps captures restore dependencies.
type RestoreDeps struct {
	Now    func() time.Time
	Logger *slog.Logger

	Load func(ctx context.Context) (*session.Session, session.LoadReport, error)
	// Commit makes sess live; false means a newer generation won.
	Commit func(sess *session.Session) bool

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RestoreMetrics
	Events  RestoreEvents
}

// RunRestore rehydrates the persisted session. It never fails: every problem
// yields nil, which callers treat as unauthenticated.
func RunRestore(ctx context.Context, deps RestoreDeps) *session.Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	normalizeCommon(&deps.Logger, &deps.MetricInc, &deps.EmitAudit)

	sess, report, err := deps.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		deps.MetricInc(deps.Metrics.RestoreEmpty)
		return nil
	case errors.Is(err, session.ErrCorrupt):
		deps.MetricInc(deps.Metrics.RestoreCorrupt)
		if report.HealErr != nil {
			deps.Logger.Error("portalAuth: corrupt session could not be cleared", "error", report.HealErr)
		} else {
			deps.Logger.Warn("portalAuth: corrupt persisted session cleared", "error", err)
		}
		deps.EmitAudit(ctx, deps.Events.RestoreCorrupt, false, "", err, func() map[string]string {
			if report.Healed {
				return map[string]string{"healed": "true"}
			}
			return map[string]string{"healed": "false"}
		})
		return nil
	default:
		deps.MetricInc(deps.Metrics.RestoreBackendFailure)
		deps.Logger.Error("portalAuth: session backend unavailable during restore", "error", err)
		return nil
	}

	if !sess.IsAuthenticated() {
		return nil
	}

	if sess.TokenMissing {
		deps.MetricInc(deps.Metrics.RestoreTokenMissing)
		deps.Logger.Warn("portalAuth: restored session has no bearer token; session is degraded", "user_id", sess.User.ID)
	} else if claims, err := jwt.Inspect(sess.Token); err == nil {
		sess.TokenExpiresAt = claims.ExpiresAt
		if claims.Expired(deps.Now()) {
			deps.MetricInc(deps.Metrics.RestoreTokenExpired)
			deps.Logger.Warn("portalAuth: restored bearer token is past its exp claim", "user_id", sess.User.ID, "expired_at", claims.ExpiresAt)
		}
	}

	if !deps.Commit(sess) {
		return nil
	}

	deps.MetricInc(deps.Metrics.RestoreSuccess)
	deps.EmitAudit(ctx, deps.Events.RestoreSuccess, true, sess.User.ID, nil, nil)
	return sess.Clone()
}
