// Package application 是嵌入 typewire 运行时的进程容器。
//
// 它负责加载配置、初始化日志，把配置中列出的清单注册到一个新的
// serializer.Registry，并在严格模式下于启动时校验全部绑定。
package application

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/typewire-go/pkg/binding"
	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/metrics"
	"github.com/lk2023060901/typewire-go/pkg/model"
	"github.com/lk2023060901/typewire-go/pkg/serializer"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
	"github.com/lk2023060901/typewire-go/pkg/util/retry"
	"github.com/lk2023060901/typewire-go/pkg/util/viper"
)

const (
	defaultConfigPath = "./config.yaml"

	envConfigPath = "TYPEWIRE_CONFIG_FILE_PATH"

	// 配置键。
	KeyManifests   = "typewire.manifests"
	KeyStrict      = "typewire.strict"
	KeyParallelism = "typewire.parallelism"
	// 清单可能由外部挂载，启动时文件尚不存在则按下面的配置重试。
	KeyLoadAttempts = "typewire.load.attempts"
	KeyLoadInterval = "typewire.load.interval"
	KeyLogging      = "logging"
)

// Application 持有配置、模块 Logger 以及由清单构建的注册表。
type Application struct {
	cfg      *viper.Config
	loggers  map[string]*log.MLogger
	registry *serializer.Registry
	apis     []*model.ApiDefinition
}

// New 创建一个 Application。
func New() *Application {
	return &Application{}
}

// Run 使用 os.Args 启动。
func (a *Application) Run() error {
	return a.RunArgs(os.Args[1:])
}

// RunArgs 解析 args 并启动。配置文件路径的优先级从低到高：
//  1. 默认值 ./config.yaml（不存在时忽略）
//  2. 环境变量 TYPEWIRE_CONFIG_FILE_PATH
//  3. 命令行 --config <path> 或 --config=<path>
func (a *Application) RunArgs(args []string) error {
	cfg, err := a.loadConfig(args)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}
	return a.initRegistry()
}

// Config 返回加载的配置。
func (a *Application) Config() *viper.Config {
	return a.cfg
}

// Registry 返回已冻结的注册表，Run 成功之前为 nil。
func (a *Application) Registry() *serializer.Registry {
	return a.registry
}

// Apis 返回加载的清单，顺序与配置一致。
func (a *Application) Apis() []*model.ApiDefinition {
	return a.apis
}

// Logger 返回配置中名为 name 的 Logger，未配置时退回全局 Logger。
func (a *Application) Logger(name string) *log.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &log.MLogger{Logger: log.L()}
}

func (a *Application) loadConfig(args []string) (*viper.Config, error) {
	configPath, explicit := defaultConfigPath, false

	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath, explicit = envPath, true
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, merr.WrapErrParameterInvalidMsg("missing value after --config")
			}
			configPath, explicit = args[i+1], true
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok && val != "" {
			configPath, explicit = val, true
		}
	}

	cfg := viper.New()
	cfg.SetDefault(KeyStrict, true)
	cfg.SetDefault(KeyLoadAttempts, 1)
	cfg.SetDefault(KeyLoadInterval, "200ms")
	if !explicit {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", configPath)
	}
	return cfg, nil
}

func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initGlobalLoggerFromEnv 根据 TYPEWIRE_LOG_* 环境变量配置全局 Logger：
//   - TYPEWIRE_LOG_ENABLE: 为 1/true 时输出日志，否则丢弃。
//   - TYPEWIRE_LOG_LEVEL: 日志级别，默认 info。
//   - TYPEWIRE_LOG_STDOUT: 是否输出到标准输出，默认 false。
//   - TYPEWIRE_LOG_FILE_DIR: 日志目录。
//   - TYPEWIRE_LOG_FILE: 日志文件名，为空时不写文件。
//   - TYPEWIRE_LOG_FORMAT: console 或 json，默认 console。
func (a *Application) initGlobalLoggerFromEnv() error {
	cfg := &log.Config{
		Level:  getenvDefault("TYPEWIRE_LOG_LEVEL", "info"),
		Format: getenvDefault("TYPEWIRE_LOG_FORMAT", log.FormatConsole),
		Stdout: getenvBool("TYPEWIRE_LOG_STDOUT", false),
		File: log.FileLogConfig{
			RootPath: getenvDefault("TYPEWIRE_LOG_FILE_DIR", ""),
			Filename: getenvDefault("TYPEWIRE_LOG_FILE", ""),
		},
	}

	var (
		logger *zap.Logger
		props  *log.ZapProperties
		err    error
	)
	if getenvBool("TYPEWIRE_LOG_ENABLE", false) {
		logger, props, err = log.InitLogger(cfg)
	} else {
		logger, props, err = log.InitLoggerWithWriteSyncer(cfg, zapcore.AddSync(io.Discard))
	}
	if err != nil {
		return errors.Wrap(err, "init global logger from env")
	}
	log.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig 按 logging 配置创建具名 Logger，例如：
//
//	logging:
//	  verify:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: verify.log
func (a *Application) initModuleLoggersFromConfig() error {
	raw := make(map[string]log.Config)
	if err := a.cfg.UnmarshalKey(KeyLogging, &raw); err != nil {
		return errors.Wrap(err, "unmarshal logging config")
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*log.MLogger, len(raw))
	for name, lc := range raw {
		logger, _, err := log.InitLogger(&lc)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &log.MLogger{Logger: logger.With(log.FieldModule(name))}
	}
	return nil
}

// initRegistry 加载清单并绑定到新的注册表。严格模式下校验全部绑定，
// 否则只冻结注册表，缺失的注册在第一次查找时报错。
func (a *Application) initRegistry() error {
	metrics.Register(metrics.GetRegisterer())
	reg := serializer.NewRegistry()
	reg.SetLogger(a.Logger("registry"))

	for _, path := range a.cfg.GetStringSlice(KeyManifests) {
		api, err := a.loadManifest(path)
		if err != nil {
			return err
		}
		if err := binding.Bind(reg, api); err != nil {
			return errors.Wrapf(err, "bind manifest %s", path)
		}
		a.apis = append(a.apis, api)
	}

	if a.cfg.GetBool(KeyStrict) {
		ctx := context.WithValue(context.Background(), log.CtxLogKey, a.Logger("verify"))
		ctx = log.WithModule(ctx, "application")
		for _, api := range a.apis {
			if _, err := binding.Verify(ctx, reg, api, a.cfg.GetInt(KeyParallelism)); err != nil {
				return errors.Wrap(err, "verify bindings")
			}
		}
	}
	reg.Freeze()
	a.registry = reg

	log.Info("typewire registry ready",
		zap.Int("manifests", len(a.apis)),
		zap.Bool("strict", a.cfg.GetBool(KeyStrict)))
	return nil
}

// loadManifest 读取清单，只有文件不存在时才重试。
func (a *Application) loadManifest(path string) (*model.ApiDefinition, error) {
	var api *model.ApiDefinition
	err := retry.Do(context.Background(), func() error {
		var err error
		api, err = model.LoadManifest(path)
		return err
	},
		retry.Attempts(uint(max(a.cfg.GetInt(KeyLoadAttempts), 1))),
		retry.Sleep(a.cfg.GetDuration(KeyLoadInterval)),
		retry.RetryErr(func(err error) bool { return errors.Is(err, os.ErrNotExist) }))
	return api, err
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
