// Package cli собирает команды операторского CLI campusface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/campusface-client/internal/connectors"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/engine"
	"github.com/xela07ax/campusface-client/internal/infra"
	"github.com/xela07ax/campusface-client/internal/infra/auth"
	"github.com/xela07ax/campusface-client/internal/reconcile"
)

// TokenEnv перекрывает сохраненную сессию (CI, скрипты).
const TokenEnv = "CAMPUSFACE_TOKEN"

// App - зависимости, общие для всех команд.
type App struct {
	cfgFile string
	sandbox bool
	output  string

	in  io.Reader
	out io.Writer

	cfg    *infra.Config
	logger *zap.Logger
	client *connectors.Client
	mock   *connectors.MockRequestService
}

// NewRoot возвращает корневую команду `campusface`.
func NewRoot(in io.Reader, out io.Writer) *cobra.Command {
	a := &App{in: in, out: out}

	root := &cobra.Command{
		Use:           "campusface",
		Short:         "CampusFace operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file path (default ./config.yaml)")
	pf.BoolVar(&a.sandbox, "sandbox", false, "use in-memory requests instead of the CampusFace API")
	pf.StringVarP(&a.output, "output", "o", "table", "output format: table|json")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.hubsCmd(),
		a.requestsCmd(),
		a.membersCmd(),
		a.qrCmd(),
		a.entryCmd(),
		a.configCmd(),
	)
	return root
}

func (a *App) init() error {
	cfg, err := infra.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger

	doer := engine.NewHTTPDoer(cfg, nil)
	a.client = connectors.NewClient(cfg.API.BaseURL, doer,
		connectors.WithNgrokBypass(cfg.API.SkipNgrokWarning),
		connectors.WithLogger(logger),
	)
	if a.sandbox {
		a.mock = connectors.SandboxRequests()
	}
	return nil
}

func (a *App) store() (*auth.SessionStore, error) {
	return auth.NewSessionStore(a.cfg.Auth.SessionFile, a.cfg.Auth.SessionSecret)
}

// credential - токен из CAMPUSFACE_TOKEN или сохраненной сессии, с проверкой срока.
func (a *App) credential() (auth.Credential, error) {
	if a.sandbox {
		return auth.Bearer("sandbox"), nil
	}

	cred := auth.Bearer(os.Getenv(TokenEnv))
	if cred.IsZero() {
		store, err := a.store()
		if err != nil {
			return auth.Credential{}, err
		}
		sess, err := store.Load()
		if err != nil {
			return auth.Credential{}, err
		}
		cred = sess.Credential()
	}

	if _, err := auth.NewClaimsReader().Inspect(cred); errors.Is(err, auth.ErrTokenExpired) {
		return auth.Credential{}, errors.New("session expired, run `campusface login`")
	}
	return cred, nil
}

func (a *App) requestService(kind domain.RequestKind) (reconcile.Service, error) {
	if a.mock != nil {
		return a.mock, nil
	}
	svc, err := a.client.Requests(kind)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (a *App) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// все вызовы одной команды идут с одним X-Request-ID
	ctx := engine.WithRequestID(cmd.Context(), uuid.NewString())
	return context.WithTimeout(ctx, 2*time.Minute)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table печатает строки через tabwriter; при -o json печатает v.
func (a *App) table(v any, header []string, rows [][]string) error {
	if a.output == "json" {
		return a.printJSON(v)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
