package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xela07ax/campusface-client/internal/domain"
)

func (a *App) hubsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "hubs", Short: "Organizations (hubs) of the signed-in user"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List my hubs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			hubs, err := a.client.MyHubs(ctx, cred)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(hubs))
			for _, h := range hubs {
				rows = append(rows, []string{h.ID, h.HubCode, h.Name,
					strconv.Itoa(len(h.Admins)), strconv.Itoa(len(h.Validators)), strconv.Itoa(len(h.Members))})
			}
			return a.table(hubs, []string{"ID", "CODE", "NAME", "ADMINS", "VALIDATORS", "MEMBERS"}, rows)
		},
	}

	var req domain.OrganizationCreateRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Name == "" || req.HubCode == "" {
				return errors.New("--name and --code are required")
			}
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			org, err := a.client.CreateOrganization(ctx, cred, req)
			if err != nil {
				return err
			}
			return a.table(org, []string{"ID", "CODE", "NAME"}, [][]string{{org.ID, org.HubCode, org.Name}})
		},
	}
	create.Flags().StringVar(&req.Name, "name", "", "hub name")
	create.Flags().StringVar(&req.Description, "description", "", "hub description")
	create.Flags().StringVar(&req.HubCode, "code", "", "hub code members use to request entry")

	cmd.AddCommand(list, create)
	return cmd
}
