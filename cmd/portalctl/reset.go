package main

import (
	"errors"
	"fmt"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/spf13/cobra"
)

// resetCmd runs the whole OTP reset in one process. Reset requests live in
// memory only, so request, verify and change cannot span invocations.
func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <email>",
		Short: "Reset a password with an emailed one-time code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := m.RequestPasswordReset(ctx, email); err != nil {
				return fmt.Errorf("request code: %w", err)
			}
			fmt.Fprintf(out, "A code was sent to %s.\n", email)

			var otp string
			for {
				otp, err = a.prompt.Input("One-time code")
				if err != nil {
					return err
				}
				err = m.VerifyPasswordResetOTP(ctx, email, otp)
				if err == nil {
					break
				}
				if !errors.Is(err, portalAuth.ErrInvalidOTP) {
					return fmt.Errorf("verify code: %w", err)
				}
				fmt.Fprintf(out, "Code rejected, %d attempts left.\n", m.PasswordResetStatus().AttemptsRemaining)
			}

			newSecret, err := a.prompt.Secret("New password")
			if err != nil {
				return err
			}
			confirm, err := a.prompt.Secret("Confirm new password")
			if err != nil {
				return err
			}
			if confirm != newSecret {
				m.CancelPasswordReset()
				return errors.New("passwords do not match")
			}

			if err := m.CompletePasswordChange(ctx, email, otp, newSecret); err != nil {
				return fmt.Errorf("change password: %w", err)
			}
			fmt.Fprintln(out, "Password changed. Sign in with the new password.")
			return nil
		},
	}
}
