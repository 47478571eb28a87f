package commands

import (
	"fmt"

	"github.com/blang/semver/v4"
	"github.com/spf13/cobra"

	"github.com/lk2023060901/typewire-go/pkg/model"
)

// Version 在构建时通过 -ldflags "-X" 注入。
var Version = "0.1.0-dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool and manifest format versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := semver.ParseTolerant(Version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "typewire %s\nmanifest format %s\n", v, model.FormatVersion)
			return nil
		},
	}
}
