package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xela07ax/campusface-client/internal/domain"
)

func (a *App) membersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "members", Short: "Manage hub members"}

	var hub string
	list := &cobra.Command{
		Use:   "list",
		Short: "List hub members",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hub == "" {
				return errors.New("--hub is required")
			}
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			members, err := a.client.ListMembers(ctx, cred, hub)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(members))
			for _, m := range members {
				rows = append(rows, []string{m.ID, m.User.FullName, m.User.Email, string(m.Role), string(m.Status)})
			}
			return a.table(members, []string{"ID", "NAME", "EMAIL", "ROLE", "STATUS"}, rows)
		},
	}
	list.Flags().StringVar(&hub, "hub", "", "organization id")

	var role, status string
	update := &cobra.Command{
		Use:   "update <member-id>",
		Short: "Change member role or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd domain.MemberUpdate
			if role != "" {
				r, ok := domain.ParseRole(role)
				if !ok {
					return fmt.Errorf("unknown role %q", role)
				}
				upd.Role = r
			}
			if status != "" {
				upd.Status = domain.MemberStatus(upper(status))
			}
			if upd == (domain.MemberUpdate{}) {
				return errors.New("nothing to update: pass --role or --status")
			}

			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			m, err := a.client.UpdateMember(ctx, cred, args[0], upd)
			if err != nil {
				return err
			}
			return a.table(m, []string{"ID", "ROLE", "STATUS"}, [][]string{{m.ID, string(m.Role), string(m.Status)}})
		},
	}
	update.Flags().StringVar(&role, "role", "", "MEMBER|VALIDATOR|ADMIN")
	update.Flags().StringVar(&status, "status", "", "ACTIVE|INACTIVE")

	remove := &cobra.Command{
		Use:   "remove <member-id>",
		Short: "Remove a member from the hub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			if err := a.client.DeleteMember(ctx, cred, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\tremoved\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, update, remove)
	return cmd
}
