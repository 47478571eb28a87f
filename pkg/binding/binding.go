// Package binding 将 model.ApiDefinition 注册到 serializer.Registry。
//
// 类注册为类序列化器（泛型类以 Name<P1,...> 形式注册），枚举按常量名注册，
// 黑盒类型注册为恒等序列化器。
package binding

import (
	"context"
	"runtime"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/typewire-go/pkg/apitype"
	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/model"
	"github.com/lk2023060901/typewire-go/pkg/serializer"
	"github.com/lk2023060901/typewire-go/pkg/util/conc"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
	"github.com/lk2023060901/typewire-go/pkg/util/typeutil"
)

// Bind 将 api 中的全部定义注册到 reg，返回遇到的全部注册错误。
// api 应当已经通过 Validate；Bind 不检查属性类型是否可解析，解析发生在查找或 Verify 时。
func Bind(reg *serializer.Registry, api *model.ApiDefinition) error {
	var errs []error
	for _, b := range api.BlackBoxes {
		if err := reg.RegisterIdentitySerializer(b.String()); err != nil {
			errs = append(errs, err)
		}
	}
	for _, e := range api.Enums {
		if err := reg.RegisterEnumConstants(e.Name.String(), e.Constants...); err != nil {
			errs = append(errs, err)
		}
	}
	for i := range api.Classes {
		c := &api.Classes[i]
		fields := make([]serializer.Field, 0, len(c.Properties))
		for _, p := range c.Properties {
			fields = append(fields, serializer.Field{Name: p.Name, Type: p.Type})
		}
		if err := reg.RegisterClassFields(c.RegistrationName(), fields...); err != nil {
			errs = append(errs, errors.Wrapf(err, "bind class %s", c.Name))
		}
	}

	reg.Logger().Debug("api definition bound",
		zap.Int("classes", len(api.Classes)),
		zap.Int("enums", len(api.Enums)),
		zap.Int("blackBoxes", len(api.BlackBoxes)))
	return merr.Combine(errs...)
}

// Roots 返回校验 api 时的根类型：非泛型类、枚举、黑盒类型，
// 以及每个类型参数都绑定为 any 的泛型类实例。结果已排序去重。
func Roots(api *model.ApiDefinition) []string {
	roots := typeutil.NewSet[string]()
	for i := range api.Classes {
		roots.Insert(api.Classes[i].Instantiate(apitype.Any))
	}
	for _, e := range api.Enums {
		roots.Insert(e.Name.String())
	}
	for _, b := range api.BlackBoxes {
		roots.Insert(b.String())
	}
	return typeutil.Sorted(roots)
}

// Report 是一次校验的结果。
type Report struct {
	// Verified 为校验通过的根类型，已排序。
	Verified []string
	// Failed 为校验失败的根类型，已排序。
	Failed []string
}

// Verify 并发校验 api 的全部根类型在 reg 中可解析，返回校验报告与合并后的错误。
// Verify 会冻结 reg。parallelism <= 0 时使用 GOMAXPROCS。
func Verify(ctx context.Context, reg *serializer.Registry, api *model.ApiDefinition, parallelism int) (*Report, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	reg.Freeze()
	logger := log.Ctx(ctx).With(log.FieldComponent("binding"))

	// 校验池只活一次调用，预分配 worker 且不做空闲清理。
	pool, err := conc.NewPool[string](parallelism, conc.WithPreAlloc(true), conc.WithDisablePurge(true))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	roots := Roots(api)
	verified := typeutil.NewConcurrentSet[string]()
	failed := typeutil.NewConcurrentSet[string]()
	futures := make([]*conc.Future[string], 0, len(roots))
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			futures = append(futures, cancelled(pool, root, err))
			continue
		}
		futures = append(futures, pool.Submit(func() (string, error) {
			if err := reg.Verify(root); err != nil {
				failed.Insert(root)
				return root, errors.Wrapf(err, "verify %s", root)
			}
			verified.Insert(root)
			return root, nil
		}))
	}

	errs := conc.AwaitAll(futures...)
	report := &Report{
		Verified: sortedOf(verified),
		Failed:   sortedOf(failed),
	}
	logger.Info("api definition verified",
		zap.Int("roots", len(roots)),
		zap.Int("verified", len(report.Verified)),
		zap.Strings("failed", report.Failed))
	return report, merr.Combine(errs...)
}

// VerifyIntent 在新的意图上下文中执行 Verify，用于进程启动阶段。
func VerifyIntent(reg *serializer.Registry, api *model.ApiDefinition) (*Report, error) {
	ctx, span := log.NewIntentContext("typewire", "verify-bindings")
	defer span.End()
	return Verify(ctx, reg, api, 0)
}

func cancelled(pool *conc.Pool[string], root string, err error) *conc.Future[string] {
	return pool.Submit(func() (string, error) {
		return root, errors.Wrapf(err, "verify %s", root)
	})
}

func sortedOf(set *typeutil.ConcurrentSet[string]) []string {
	items := set.Collect()
	slices.Sort(items)
	return items
}
