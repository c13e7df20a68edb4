package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/morezero/zomecall/internal/runner"
	"github.com/morezero/zomecall/pkg/profiles"
	"github.com/morezero/zomecall/pkg/wire"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Profile      string
	ProfilesFile string
	App          string
	Zome         string
	Fn           string
	Payload      string
	Cap          string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Call one zome function and print its result",
		Long: `Call one zome function and print its result as JSON.

The target comes from the environment, then from --profile, then from the
individual flags.

Example:
  zomecall call --zome squareroots --fn square_root --payload '{"number":7}'
  zomecall call --profile pcrtest`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "named call profile, overrides PROFILE")
	cmd.Flags().StringVar(&opts.ProfilesFile, "profiles-file", "", "profiles YAML file, overrides PROFILES_FILE")
	cmd.Flags().StringVar(&opts.App, "app", "", "installed app id, overrides INSTALLED_APP_ID")
	cmd.Flags().StringVar(&opts.Zome, "zome", "", "zome name, overrides ZOME_NAME")
	cmd.Flags().StringVar(&opts.Fn, "fn", "", "function name, overrides FN_NAME")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "payload as JSON, overrides ZOME_PAYLOAD")
	cmd.Flags().StringVar(&opts.Cap, "cap", "", "base64 capability secret, overrides CAP_SECRET")

	return cmd
}

func runCall(opts *CallOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	profileName := cfg.Profile
	if opts.Profile != "" {
		profileName = opts.Profile
	}
	if profileName != "" {
		file := cfg.ProfilesFile
		if opts.ProfilesFile != "" {
			file = opts.ProfilesFile
		}
		set, err := profiles.Load(file)
		if err != nil {
			return err
		}
		p := set.Get(profileName)
		if p == nil {
			return fmt.Errorf("unknown profile %q (known: %v)", profileName, set.Names())
		}
		cfg.ApplyProfile(p)
	}

	flags := cmd.Flags()
	if flags.Changed("app") {
		cfg.InstalledAppID = opts.App
	}
	if flags.Changed("zome") {
		cfg.ZomeName = opts.Zome
	}
	if flags.Changed("fn") {
		cfg.FnName = opts.Fn
	}
	if flags.Changed("payload") {
		cfg.ZomePayload = opts.Payload
	}
	if flags.Changed("cap") {
		cfg.CapSecret = opts.Cap
	}
	if err := cfg.ValidateForCall(); err != nil {
		return err
	}

	r, err := runner.New(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := r.Call(ctx)
	if err != nil {
		return err
	}
	data, err := wire.ToJSON(out)
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
