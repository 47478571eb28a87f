package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/lk2023060901/typewire-go/internal/json"
	"github.com/lk2023060901/typewire-go/pkg/apitype"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

type parsedType struct {
	Input     string   `json:"input"`
	Canonical string   `json:"canonical"`
	Kind      string   `json:"kind"`
	Nullable  bool     `json:"nullable"`
	Refs      []string `json:"refs,omitempty"`
}

func newParseCmd() *cobra.Command {
	var (
		variables  []string
		blackBoxes []string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "parse TYPE...",
		Short: "Parse type strings and print their canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []apitype.ParseOption{
				apitype.WithVariables(variables...),
				apitype.WithBlackBoxes(lo.Map(blackBoxes, func(s string, _ int) apitype.TypeName {
					return apitype.NewTypeName(s)
				})...),
			}
			results := make([]parsedType, 0, len(args))
			for _, arg := range args {
				t, err := apitype.Parse(arg, opts...)
				if err != nil {
					return errors.Wrapf(err, "parse %q", arg)
				}
				results = append(results, parsedType{
					Input:     arg,
					Canonical: t.TypeRepresentation(),
					Kind:      kindOf(t.Unwrap()),
					Nullable:  apitype.IsNullable(t),
					Refs:      classRefs(t),
				})
			}

			out := cmd.OutOrStdout()
			switch output {
			case "text":
				for _, r := range results {
					fmt.Fprintf(out, "%s\t%s\n", r.Canonical, r.Kind)
				}
			case "json":
				data, err := json.MarshalCanonical(results)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			default:
				return merr.WrapErrParameterInvalid("text|json", output, "unknown output")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&variables, "var", nil, "Names to treat as type variables")
	cmd.Flags().StringSliceVar(&blackBoxes, "black-box", nil, "Names to treat as black-box types")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output: text or json")
	return cmd
}

func kindOf(t apitype.Type) string {
	switch t.(type) {
	case apitype.Primitive:
		return "primitive"
	case apitype.Array:
		return "array"
	case apitype.Dictionary:
		return "dictionary"
	case apitype.Class:
		return "class"
	case apitype.ParameterizedClass:
		return "parameterized-class"
	case apitype.Variable:
		return "variable"
	case apitype.BlackBox:
		return "black-box"
	case apitype.Nullable:
		return "nullable"
	}
	return "unknown"
}

// classRefs 返回 t 中引用的全部类名，按出现顺序去重。
func classRefs(t apitype.Type) []string {
	var refs []string
	var walk func(apitype.Type)
	walk = func(t apitype.Type) {
		switch t := t.(type) {
		case apitype.Class:
			refs = append(refs, t.Name.String())
		case apitype.ParameterizedClass:
			refs = append(refs, t.Name.String())
			for _, arg := range t.Arguments {
				walk(arg)
			}
		case apitype.Array:
			walk(t.Elem)
		case apitype.Dictionary:
			walk(t.Value)
		case apitype.Nullable:
			walk(t.Type)
		}
	}
	walk(t)
	return lo.Uniq(refs)
}
