package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/typewire-go/pkg/binding"
	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var (
		parallelism int
		extra       []string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Bind manifests and verify that every reachable type resolves",
		Long: `check loads every manifest into a fresh registry and resolves each class,
enum and black-box type, walking class fields eagerly. Generic classes are
checked with every type parameter bound to any. Extra type strings given with
--type are verified as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(root.manifests) == 0 && len(extra) == 0 {
				return merr.WrapErrParameterInvalidMsg("check needs at least one --manifest or --type")
			}
			reg, apis, err := root.loadRegistry()
			if err != nil {
				return err
			}

			ctx, span := log.NewIntentContext("typewire", "check")
			defer span.End()

			out := cmd.OutOrStdout()
			var errs []error
			for i, api := range apis {
				report, err := binding.Verify(ctx, reg, api, parallelism)
				errs = append(errs, err)
				fmt.Fprintf(out, "%s: %d verified, %d failed\n", root.manifests[i], len(report.Verified), len(report.Failed))
				for _, failed := range report.Failed {
					fmt.Fprintf(out, "  FAIL %s\n", failed)
				}
			}
			if len(extra) > 0 {
				err := reg.Verify(extra...)
				errs = append(errs, err)
				status := "ok"
				if err != nil {
					status = "failed"
				}
				fmt.Fprintf(out, "types: %s\n", status)
			}
			return merr.Combine(errs...)
		},
	}
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "Concurrent verifications (default GOMAXPROCS)")
	cmd.Flags().StringSliceVarP(&extra, "type", "t", nil, "Additional type strings to verify")
	return cmd
}
