package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/morezero/zomecall/pkg/profiles"
)

// ProfilesOptions holds flags for the profiles command.
type ProfilesOptions struct {
	*RootOptions
	File string
}

// NewProfilesCommand creates the profiles command.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfilesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "profiles",
		Short:         "List named call profiles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "profiles YAML file, overrides PROFILES_FILE")

	return cmd
}

func runProfiles(opts *ProfilesOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	file := cfg.ProfilesFile
	if opts.File != "" {
		file = opts.File
	}
	set, err := profiles.Load(file)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n\n", set.Name(), set.Version())
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAPP\tFUNCTION\tPAYLOAD\tDESCRIPTION")
	for _, name := range set.Names() {
		p := set.Get(name)
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%s\n", name, p.AppID, p.Zome, p.Fn, p.PayloadJSON(), p.Description)
	}
	return w.Flush()
}
