package flows

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/portalAuth/gateway"
)

// AuditFunc emits one audit event. meta is evaluated only when a sink is
// attached.
type AuditFunc func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)

// GatewayErrors are the host sentinels a gateway failure maps onto.
type GatewayErrors struct {
	InvalidCredentials error
	Network            error
	MalformedResponse  error
}

// Deps groups flow dependency sets. The Manager builds this once and
// delegates each method to the matching flow.
type Deps struct {
	Login         LoginDeps
	Restore       RestoreDeps
	Logout        LogoutDeps
	UpdateUser    UpdateUserDeps
	PasswordReset PasswordResetDeps
}

func mapGatewayFailure(kind gateway.Kind, errs GatewayErrors) error {
	switch kind {
	case gateway.KindNetwork:
		return errs.Network
	case gateway.KindMalformed:
		return errs.MalformedResponse
	default:
		return errs.InvalidCredentials
	}
}

func normalizeCommon(logger **slog.Logger, metricInc *func(int), emit *AuditFunc) {
	if *logger == nil {
		*logger = slog.Default()
	}
	if *metricInc == nil {
		*metricInc = func(int) {}
	}
	if *emit == nil {
		*emit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
