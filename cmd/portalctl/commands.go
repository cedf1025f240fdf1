package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/MrEthical07/portalAuth/permission"
	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "login [identifier]",
		Short: "Sign in and persist the session",
		Long: `Sign in with an email or employee id. The secret is prompted for unless
--secret is given.

Examples:
  portalctl login jane@example.com
  portalctl login E1042 --secret "$PORTAL_SECRET"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var identifier string
			if len(args) == 1 {
				identifier = args[0]
			} else {
				v, err := a.prompt.Input("Email or employee id")
				if err != nil {
					return err
				}
				identifier = v
			}
			if secret == "" {
				v, err := a.prompt.Secret("Password")
				if err != nil {
					return err
				}
				secret = v
			}

			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			sess, err := m.Login(cmd.Context(), identifier, secret)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s (%s)\n", displayName(sess.User), sess.Role())
			fmt.Fprintf(out, "Home portal: %s\n", m.HomePortal())
			if sess.TokenMissing {
				fmt.Fprintln(out, "Warning: the identity provider issued no bearer token.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "password; prompted for when empty")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := m.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			user := m.CurrentUser()
			if user == nil {
				return portalAuth.ErrNotAuthenticated
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(user)
			}
			fmt.Fprintf(out, "ID:    %s\n", user.ID)
			fmt.Fprintf(out, "Name:  %s\n", displayName(user))
			fmt.Fprintf(out, "Email: %s\n", user.Email)
			fmt.Fprintf(out, "Role:  %s\n", user.Role)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full user record as JSON")
	return cmd
}

func (a *app) homeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Print the portal path for the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if !m.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), m.LoginPath())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.HomePortal())
			return nil
		},
	}
}

func (a *app) admitCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "admit [role...]",
		Short: "Check whether the current session may enter a portal",
		Long: `Check access for the current session, either against an explicit list of
roles or against the portal that owns --path. Denied checks exit non-zero.

Examples:
  portalctl admit HR Manager
  portalctl admit --path /hr/payroll`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" && len(args) == 0 {
				return errors.New("name at least one role or pass --path")
			}
			roles := make([]permission.Role, 0, len(args))
			for _, arg := range args {
				role, ok := permission.ParseRole(arg)
				if !ok {
					return fmt.Errorf("unknown role %q", arg)
				}
				roles = append(roles, role)
			}

			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			var decision portalAuth.Decision
			if path != "" {
				decision = m.AdmitPath(path)
			} else {
				decision = m.Admit(roles...)
			}

			out := cmd.OutOrStdout()
			if decision.Admitted() {
				fmt.Fprintln(out, "admitted")
				return nil
			}
			fmt.Fprintf(out, "redirect to %s\n", m.LoginPath())
			return decision.Err()
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "check the roles of the portal that owns this path")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "update --set key=value...",
		Short: "Merge fields into the signed-in user record",
		Long: `Merge top-level fields into the stored user record. Values that parse as
JSON keep their type; anything else is stored as a string.

Examples:
  portalctl update --set name="Jane Doe" --set phone=5550100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch, err := parsePatch(sets)
			if err != nil {
				return err
			}

			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			sess, err := m.UpdateUser(cmd.Context(), patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", displayName(sess.User))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "key=value pair; repeatable")
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the security report for the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, closeFn, err := a.openManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(m.SecurityReport())
		},
	}
}

func parsePatch(sets []string) (portalAuth.UserPatch, error) {
	if len(sets) == 0 {
		return nil, errors.New("at least one --set is required")
	}
	patch := make(portalAuth.UserPatch, len(sets))
	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", kv)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		patch[key] = value
	}
	return patch, nil
}

func displayName(u *portalAuth.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}
