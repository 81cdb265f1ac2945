package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func (a *App) qrCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "qr", Short: "Access codes for hub entry"}

	generate := &cobra.Command{
		Use:   "generate <hub-id>",
		Short: "Generate a one-time access code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			code, err := a.client.GenerateQRCode(ctx, cred, args[0])
			if err != nil {
				return err
			}
			left := code.Remaining(time.Now()).Round(time.Second)
			return a.table(code, []string{"CODE", "EXPIRES", "REMAINING"},
				[][]string{{code.Code, formatTime(code.ExpirationTime), left.String()}})
		},
	}

	validate := &cobra.Command{
		Use:   "validate <code>",
		Short: "Validate a presented code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			v, err := a.client.ValidateQRCode(ctx, cred, args[0])
			if err != nil {
				return err
			}
			name, role := "-", "-"
			if v.Member != nil {
				name, role = v.Member.User.FullName, string(v.Member.Role)
			}
			if err := a.table(v, []string{"VALID", "MESSAGE", "MEMBER", "ROLE"},
				[][]string{{strconv.FormatBool(v.Valid), v.Message, name, role}}); err != nil {
				return err
			}
			if !v.Valid {
				return fmt.Errorf("code rejected: %s", v.Message)
			}
			return nil
		},
	}

	invalidate := &cobra.Command{
		Use:   "invalidate <code>",
		Short: "Revoke a code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			if err := a.client.InvalidateQRCode(ctx, cred, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\tinvalidated\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(generate, validate, invalidate)
	return cmd
}
