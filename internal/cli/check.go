package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/choice/internal/conf"
	"github.com/example/choice/pkg/choice"
)

func newCheckCommand() *cobra.Command {
	var flags sourceFlags
	var defaultTag string

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check a document's choice tag against the configured plugin sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := conf.Load(args[0])
			if err != nil {
				return err
			}

			var opts []choice.Option
			if defaultTag != "" {
				opts = append(opts, choice.WithDefault(defaultTag))
			}
			reg := flags.registry(opts...)

			v, err := reg.Decode(doc)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s decodes as %T\n", args[0], v)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&defaultTag, "default", "", "Tag assumed when the document carries none")
	return cmd
}
