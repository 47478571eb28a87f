// Package commands 实现 typewire 命令行工具。
package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/typewire-go/pkg/binding"
	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/model"
	"github.com/lk2023060901/typewire-go/pkg/serializer"
)

// rootOptions 是所有子命令共享的参数。
type rootOptions struct {
	manifests []string
	logLevel  string
	logFormat string
}

// NewRootCmd 创建 typewire 根命令。
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "typewire",
		Short: "Inspect type strings and drive the typewire serializer runtime",
		Long: `typewire works with the canonical type strings embedded in generated clients.

It parses and normalizes type strings, loads API manifests into a serializer
registry, verifies that every type reachable from a manifest resolves, and
serializes or deserializes values against a type string.

Examples:
  typewire parse "Array<Person> | null"
  typewire check -m api.yaml
  echo '{"name":"ada"}' | typewire serialize Person -m api.yaml
  typewire manifest fmt api.yaml -o api.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.initLogger(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&opts.manifests, "manifest", "m", nil, "API manifest files (yaml or json), may be repeated")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", log.FormatConsole, "Log format: console or json")

	root.AddCommand(
		newParseCmd(),
		newCheckCmd(opts),
		newSerializeCmd(opts),
		newDeserializeCmd(opts),
		newManifestCmd(),
		newVersionCmd(),
	)
	return root
}

// initLogger 将日志写到 stderr，避免污染命令输出。
func (opts *rootOptions) initLogger(cmd *cobra.Command) error {
	cfg := &log.Config{Level: opts.logLevel, Format: opts.logFormat}
	logger, props, err := log.InitLoggerWithWriteSyncer(cfg, zapcore.AddSync(cmd.ErrOrStderr()))
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	log.ReplaceGlobals(logger, props)
	return nil
}

// loadRegistry 加载全部清单并绑定到新的注册表，返回未冻结的注册表。
func (opts *rootOptions) loadRegistry() (*serializer.Registry, []*model.ApiDefinition, error) {
	reg := serializer.NewRegistry()
	apis := make([]*model.ApiDefinition, 0, len(opts.manifests))
	for _, path := range opts.manifests {
		api, err := model.LoadManifest(path)
		if err != nil {
			return nil, nil, err
		}
		if err := binding.Bind(reg, api); err != nil {
			return nil, nil, errors.Wrapf(err, "bind manifest %s", path)
		}
		apis = append(apis, api)
	}
	return reg, apis, nil
}
