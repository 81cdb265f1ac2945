package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"github.com/xela07ax/campusface-client/internal/reconcile"
)

type requestFlags struct {
	kind string
	hub  string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "kind", "entry", "request kind: entry|change|member")
	cmd.Flags().StringVar(&f.hub, "hub", "", "organization id")
}

func (a *App) requestsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "requests", Short: "Review pending requests of a hub"}

	var lf requestFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List pending requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			h, _, err := a.openHolder(ctx, lf)
			if err != nil {
				return err
			}
			defer h.Close()
			return a.printRequests(h.Snapshot())
		},
	}
	lf.bind(list)

	cmd.AddCommand(list, a.decideCmd(reconcile.DecisionApprove), a.decideCmd(reconcile.DecisionReject))
	return cmd
}

func (a *App) decideCmd(d reconcile.Decision) *cobra.Command {
	var f requestFlags
	use, short := "approve", "Approve requests"
	if d == reconcile.DecisionReject {
		use, short = "reject", "Reject requests"
	}

	cmd := &cobra.Command{
		Use:   use + " <request-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			h, cred, err := a.openHolder(ctx, f)
			if err != nil {
				return err
			}
			defer h.Close()

			// все решения уходят сразу, ответы ждем вместе
			actions := make([]*reconcile.PendingAction, len(args))
			for i, id := range args {
				if d == reconcile.DecisionApprove {
					actions[i] = h.Approve(ctx, cred, id)
				} else {
					actions[i] = h.Reject(ctx, cred, id)
				}
			}

			results, failed := collectResults(ctx, d, f.hub, args, actions)

			if a.output == "json" {
				out := struct {
					Results []decisionResult `json:"results"`
					State   reconcile.State  `json:"state"`
				}{results, h.Snapshot()}
				if err := a.printJSON(out); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Error != "" {
						fmt.Fprintf(a.out, "%s\t%s: %s\n", r.ID, r.Outcome, r.Error)
					} else {
						fmt.Fprintf(a.out, "%s\t%s\n", r.ID, r.Outcome)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d decisions not applied", failed, len(args))
			}
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

// openHolder загружает коллекцию хаба в держатель.
func (a *App) openHolder(ctx context.Context, f requestFlags) (*reconcile.Holder, auth.Credential, error) {
	if f.hub == "" {
		if !a.sandbox {
			return nil, auth.Credential{}, errors.New("--hub is required")
		}
		f.hub = "sandbox"
	}
	kind, err := domain.ParseKind(f.kind)
	if err != nil {
		return nil, auth.Credential{}, fmt.Errorf("--kind %q: %w", f.kind, err)
	}
	cred, err := a.credential()
	if err != nil {
		return nil, auth.Credential{}, err
	}
	svc, err := a.requestService(kind)
	if err != nil {
		return nil, auth.Credential{}, err
	}
	policy, err := reconcile.ParseRollbackPolicy(a.cfg.Reconcile.Rollback)
	if err != nil {
		return nil, auth.Credential{}, err
	}

	h := reconcile.NewHolder(svc, kind, reconcile.WithLogger(a.logger), reconcile.WithRollbackPolicy(policy))
	if err := h.Load(ctx, cred, f.hub); err != nil {
		h.Close()
		return nil, auth.Credential{}, err
	}
	return h, cred, nil
}

func (a *App) printRequests(st reconcile.State) error {
	rows := make([][]string, 0, len(st.Items))
	for _, r := range st.Items {
		detail := string(r.Role)
		if r.Kind == domain.KindChange {
			detail = r.NewFaceURL
		}
		rows = append(rows, []string{r.ID, r.Subject.FullName, r.Subject.Email, detail, formatTime(r.RequestedAt)})
	}
	return a.table(st, []string{"ID", "NAME", "EMAIL", "ROLE/IMAGE", "REQUESTED"}, rows)
}

// decisionResult - итог решения по одной заявке.
type decisionResult struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"` // approved | rejected | failed | skipped
	Error   string `json:"error,omitempty"`
}

// collectResults ждет исход каждого действия. Не дождались (истек ctx команды) - тоже отказ.
func collectResults(ctx context.Context, d reconcile.Decision, hub string, ids []string, actions []*reconcile.PendingAction) ([]decisionResult, int) {
	results := make([]decisionResult, len(ids))
	failed := 0
	for i, act := range actions {
		res := decisionResult{ID: ids[i], Outcome: pastTense(d)}
		if act == nil {
			res.Outcome, res.Error = "skipped", "not pending in hub "+hub
		} else if err := act.Wait(ctx); err != nil {
			res.Outcome, res.Error = "failed", err.Error()
		}
		if res.Error != "" {
			failed++
		}
		results[i] = res
	}
	return results, failed
}

func pastTense(d reconcile.Decision) string {
	if d == reconcile.DecisionApprove {
		return "approved"
	}
	return "rejected"
}
