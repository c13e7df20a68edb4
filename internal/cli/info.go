package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/morezero/zomecall/internal/runner"
	"github.com/morezero/zomecall/pkg/conductor"
)

// InfoOptions holds flags for the info command.
type InfoOptions struct {
	*RootOptions
	App string
}

// appInfoView is the printed form of an installed app.
type appInfoView struct {
	InstalledAppID string     `json:"installedAppId"`
	Cells          []cellView `json:"cells"`
}

type cellView struct {
	Nick    string `json:"nick"`
	CellID  string `json:"cellId"`
	DnaHash string `json:"dnaHash"`
	Agent   string `json:"agent"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InfoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the cells of an installed app",
		Long: `Show the cells of an installed app. The first cell listed is the one
zomecall call targets.

Example:
  zomecall info --app test-app`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.App, "app", "", "installed app id, overrides INSTALLED_APP_ID")

	return cmd
}

func runInfo(opts *InfoOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	if opts.App != "" {
		cfg.InstalledAppID = opts.App
	}
	if err := cfg.ValidateForConnect(); err != nil {
		return err
	}

	r, err := runner.New(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info, err := r.Info(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(newAppInfoView(info), "", "  ")
	if err != nil {
		return fmt.Errorf("render app info: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func newAppInfoView(info *conductor.InstalledAppInfo) *appInfoView {
	view := &appInfoView{InstalledAppID: info.InstalledAppID, Cells: []cellView{}}
	for _, c := range info.CellData {
		view.Cells = append(view.Cells, cellView{
			Nick:    c.CellNick,
			CellID:  c.CellID.String(),
			DnaHash: c.CellID.DnaHash().String(),
			Agent:   c.CellID.AgentPubKey().String(),
		})
	}
	return view
}
