package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xela07ax/campusface-client/internal/domain"
)

// entryCmd - заявки со стороны участника: вступление в хаб и смена фото.
func (a *App) entryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "entry", Short: "My entry and photo change requests"}

	var hubCode, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Request entry to a hub by its code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hubCode == "" {
				return errors.New("--code is required")
			}
			r, ok := domain.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			req, err := a.client.CreateEntryRequest(ctx, cred, hubCode, r)
			if err != nil {
				return err
			}
			return a.table(req, []string{"ID", "HUB", "ROLE", "STATUS"},
				[][]string{{req.ID, req.Scope, string(req.Role), string(req.Status)}})
		},
	}
	create.Flags().StringVar(&hubCode, "code", "", "hub code")
	create.Flags().StringVar(&role, "role", "MEMBER", "requested role: MEMBER|VALIDATOR")

	mine := &cobra.Command{
		Use:   "mine",
		Short: "List my entry requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			reqs, err := a.client.MyEntryRequests(ctx, cred)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(reqs))
			for _, r := range reqs {
				rows = append(rows, []string{r.ID, r.Scope, string(r.Role), string(r.Status), formatTime(r.RequestedAt)})
			}
			return a.table(reqs, []string{"ID", "HUB", "ROLE", "STATUS", "REQUESTED"}, rows)
		},
	}

	var hub, image string
	photo := &cobra.Command{
		Use:   "photo",
		Short: "Request a face photo change in a hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hub == "" || image == "" {
				return errors.New("--hub and --image are required")
			}
			content, err := os.ReadFile(image)
			if err != nil {
				return err
			}
			cred, err := a.credential()
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			req, err := a.client.CreateChangeRequest(ctx, cred, hub, content)
			if err != nil {
				return err
			}
			return a.table(req, []string{"ID", "HUB", "STATUS"}, [][]string{{req.ID, req.Scope, string(req.Status)}})
		},
	}
	photo.Flags().StringVar(&hub, "hub", "", "organization id")
	photo.Flags().StringVar(&image, "image", "", "path to a JPEG/PNG photo")

	cmd.AddCommand(create, mine, photo)
	return cmd
}
