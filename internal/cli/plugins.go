package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/example/choice/pkg/choice"
)

// sourceFlags collects the discovery configuration shared by subcommands.
type sourceFlags struct {
	dirs       []string
	namespaces []string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.dirs, "dir", nil, "Directory of shared-object plugins to load")
	cmd.Flags().StringArrayVar(&f.namespaces, "namespace", nil, "Loader namespace to run")
}

// registry builds a registry discovered from the configured sources.
func (f *sourceFlags) registry(opts ...choice.Option) *choice.Registry {
	var srcs []choice.Source
	for _, dir := range f.dirs {
		srcs = append(srcs, choice.Dir(dir))
	}
	for _, ns := range f.namespaces {
		srcs = append(srcs, choice.Namespace(ns))
	}
	if len(srcs) > 0 {
		opts = append(opts, choice.WithDiscovery(choice.Sources(srcs...)))
	}
	return choice.NewRegistry(opts...)
}

func newPluginsCommand() *cobra.Command {
	var flags sourceFlags

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the variants registered by the configured plugin sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			known, err := flags.registry().Known()
			if err != nil {
				return err
			}

			tags := make([]string, 0, len(known))
			for tag := range known {
				tags = append(tags, tag)
			}
			sort.Strings(tags)

			for _, tag := range tags {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag, known[tag].Type)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %d variant(s) registered\n", len(tags))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
