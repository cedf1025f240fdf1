package flows

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/portalAuth/session"
)

// UpdateUserErrors carries host-level sentinel errors used by the update flow.
type UpdateUserErrors struct {
	NotAuthenticated error
	InvalidPatch     error
	Superseded       error
}

// UpdateUserDeps captures profile update dependencies.
type UpdateUserDeps struct {
	Logger *slog.Logger

	// Current returns a copy of the live session and its generation.
	Current func() (*session.Session, uint64)
	// Commit persists user and swaps it into the live session if the
	// generation still matches.
	Commit func(ctx context.Context, user *session.User, generation uint64) (*session.Session, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metric int
	Event  string
	Errors UpdateUserErrors
}

// RunUpdateUser shallow-merges patch into the live user record.
func RunUpdateUser(ctx context.Context, patch session.UserPatch, deps UpdateUserDeps) (*session.Session, error) {
	normalizeCommon(&deps.Logger, &deps.MetricInc, &deps.EmitAudit)

	current, generation := deps.Current()
	if !current.IsAuthenticated() {
		return nil, deps.Errors.NotAuthenticated
	}

	merged, err := current.User.Merge(patch)
	if err != nil {
		deps.EmitAudit(ctx, deps.Event, false, current.User.ID, err, nil)
		return nil, errors.Join(deps.Errors.InvalidPatch, err)
	}

	updated, err := deps.Commit(ctx, merged, generation)
	if err != nil {
		if !errors.Is(err, deps.Errors.Superseded) {
			deps.Logger.Error("portalAuth: persisting updated user failed", "error", err)
		}
		deps.EmitAudit(ctx, deps.Event, false, current.User.ID, err, nil)
		return nil, err
	}

	deps.MetricInc(deps.Metric)
	deps.EmitAudit(ctx, deps.Event, true, merged.ID, nil, func() map[string]string {
		keys := make(map[string]string, len(patch))
		for k := range patch {
			keys["field."+k] = "updated"
		}
		return keys
	})
	return updated, nil
}
