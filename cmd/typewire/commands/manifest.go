package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/typewire-go/pkg/binding"
	"github.com/lk2023060901/typewire-go/pkg/model"
)

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Work with API manifest files",
	}
	cmd.AddCommand(newManifestFmtCmd(), newManifestRootsCmd())
	return cmd
}

func newManifestFmtCmd() *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Validate a manifest and rewrite it in normalized form",
		Long: `fmt validates FILE and writes it back with classes, enums and black-box types
sorted by name. With --output the result is written to another file, whose
extension selects yaml or json. Without it the result goes to stdout in the
format given by --format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := model.LoadManifest(args[0])
			if err != nil {
				return err
			}
			if output != "" {
				return model.SaveManifest(output, api)
			}
			return model.WriteManifest(cmd.OutOrStdout(), api, model.ManifestFormat(format))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", string(model.ManifestYAML), "Stdout format: yaml or json")
	return cmd
}

func newManifestRootsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roots FILE",
		Short: "List the type strings check verifies for a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := model.LoadManifest(args[0])
			if err != nil {
				return err
			}
			for _, root := range binding.Roots(api) {
				fmt.Fprintln(cmd.OutOrStdout(), root)
			}
			return nil
		},
	}
}
