package flows

import (
	"context"
	"log/slog"
)

// LogoutMetrics carries metric IDs needed by the logout flow.
type LogoutMetrics struct {
	Logout              int
	SessionStoreFailure int
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Logger *slog.Logger

	// Clear drops the live session, advances the generation and deletes the
	// persisted keys as one step. It returns the id of the user that was
	// signed in, if any; the live session is gone even when err is set.
	Clear func(ctx context.Context) (userID string, err error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LogoutMetrics
	Event   string
}

// RunLogout clears the live session and both persisted keys. The in-memory
// state is cleared even when the backend delete fails.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	normalizeCommon(&deps.Logger, &deps.MetricInc, &deps.EmitAudit)

	userID, err := deps.Clear(ctx)
	if err != nil {
		deps.MetricInc(deps.Metrics.SessionStoreFailure)
		deps.Logger.Error("portalAuth: clearing persisted session failed", "error", err)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Event, err == nil, userID, err, nil)
	return err
}
