package serializer

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/typewire-go/pkg/apitype"
	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/metrics"
	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

// 注册类别，用于日志与 registrations_total 指标。
const (
	KindFactory    = "factory"
	KindSerializer = "serializer"
	KindIdentity   = "identity"
	KindEnum       = "enum"
	KindClass      = "class"
)

type genericEntry struct {
	params  []string
	factory Factory
}

var _ Resolver = (*Registry)(nil)

// Registry 是类型名到序列化行为的注册表。
//
// 注册阶段单线程调用 Register* 系列方法；Freeze 之后注册表只读，
// 可以被任意多个 goroutine 并发查找。第一次 Serialize、Deserialize 或
// Lookup 会隐式冻结注册表。
type Registry struct {
	log.Binder

	plain   map[string]Factory
	generic map[string]genericEntry

	frozen atomic.Bool
	// cache 以规范类型字符串为键，只在冻结后写入。
	cache sync.Map
}

// NewRegistry 创建带有内置序列化器的注册表：any、string、number、boolean
// 为恒等转换，Array<V> 与 Dictionary<V> 为泛型容器。
func NewRegistry() *Registry {
	r := &Registry{
		plain:   make(map[string]Factory),
		generic: make(map[string]genericEntry),
	}
	for _, p := range []apitype.Primitive{apitype.Any, apitype.String, apitype.Number, apitype.Boolean} {
		r.plain[p.String()] = Static(Identity)
	}
	r.generic[typeexpr.ArrayBase] = genericEntry{params: []string{ArrayParam}, factory: ArrayFactory}
	r.generic[typeexpr.DictionaryBase] = genericEntry{params: []string{DictionaryParam}, factory: DictionaryFactory}
	return r
}

// RegisterSerializerFactory 注册工厂。nameOrGenericForm 为裸名时注册到普通表；
// 为 Base<P1,P2> 形式时注册到泛型表，参数必须是互不相同的裸名。
// 同名注册会覆盖之前的注册。
func (r *Registry) RegisterSerializerFactory(nameOrGenericForm string, factory Factory) error {
	return r.register(nameOrGenericForm, factory, KindFactory)
}

// RegisterSerializer 注册一个固定的 Serializer。
func (r *Registry) RegisterSerializer(name string, s Serializer) error {
	if s == nil {
		return merr.WrapErrRegistrationInvalid(name, "nil serializer")
	}
	return r.register(name, Static(s), KindSerializer)
}

// RegisterIdentitySerializer 将 name 注册为恒等转换，用于黑盒类型。
func (r *Registry) RegisterIdentitySerializer(name string) error {
	return r.register(name, Static(Identity), KindIdentity)
}

// RegisterEnumSerializer 由线上常量到用户侧值的映射注册枚举。
func (r *Registry) RegisterEnumSerializer(name string, table map[string]any) error {
	if err := r.checkFrozen(name); err != nil {
		return err
	}
	s, err := NewEnum(name, table)
	if err != nil {
		return err
	}
	return r.register(name, Static(s), KindEnum)
}

// RegisterEnumConstants 注册线上值与用户侧值相同的字符串枚举。
func (r *Registry) RegisterEnumConstants(name string, constants ...string) error {
	if err := r.checkFrozen(name); err != nil {
		return err
	}
	s, err := NewEnumConstants(name, constants...)
	if err != nil {
		return err
	}
	return r.register(name, Static(s), KindEnum)
}

// RegisterClassSerializer 注册类序列化器，nameOrGenericForm 可以是 Page<T> 形式，
// 字段类型中出现的 T 在解析 Page<Person> 时被绑定为 Person。
func (r *Registry) RegisterClassSerializer(nameOrGenericForm string, fields map[string]string) error {
	return r.RegisterClassFields(nameOrGenericForm, FieldsOf(fields)...)
}

// RegisterClassFields 与 RegisterClassSerializer 相同，保留字段的声明顺序。
func (r *Registry) RegisterClassFields(nameOrGenericForm string, fields ...Field) error {
	if err := r.checkFrozen(nameOrGenericForm); err != nil {
		return err
	}
	key, _, err := parseRegistration(nameOrGenericForm)
	if err != nil {
		return err
	}
	factory, err := ClassFactory(key, fields)
	if err != nil {
		return err
	}
	return r.register(nameOrGenericForm, factory, KindClass)
}

func (r *Registry) checkFrozen(name string) error {
	if r.frozen.Load() {
		return merr.WrapErrRegistryFrozen(name)
	}
	return nil
}

func (r *Registry) register(nameOrGenericForm string, factory Factory, kind string) error {
	if err := r.checkFrozen(nameOrGenericForm); err != nil {
		return err
	}
	if factory == nil {
		return merr.WrapErrRegistrationInvalid(nameOrGenericForm, "nil factory")
	}
	base, params, err := parseRegistration(nameOrGenericForm)
	if err != nil {
		return err
	}

	logger := r.Logger().With(log.FieldType(nameOrGenericForm), log.FieldKind(kind))
	if len(params) == 0 {
		if _, ok := r.plain[base]; ok {
			logger.Debug("overwrite serializer registration")
		}
		r.plain[base] = factory
	} else {
		if _, ok := r.generic[base]; ok {
			logger.Debug("overwrite generic serializer registration")
		}
		r.generic[base] = genericEntry{params: params, factory: factory}
	}
	metrics.SerializerRegistrationsTotal.WithLabelValues(kind).Inc()
	logger.Debug("serializer registered", zap.Strings("params", params))
	return nil
}

// parseRegistration 将注册名拆为基名与声明参数。
func parseRegistration(nameOrGenericForm string) (string, []string, error) {
	e, err := typeexpr.Parse(nameOrGenericForm)
	if err != nil {
		return "", nil, err
	}
	switch e := e.(type) {
	case typeexpr.Named:
		if len(e.Args) == 0 {
			return e.Name, nil, nil
		}
		return declare(e.Name, nameOrGenericForm, e.Args)
	case typeexpr.ArrayOf:
		// Array<V> 会被解析器规范化为 ArrayOf，这里还原为泛型声明；V[] 不是声明。
		if strings.HasSuffix(strings.TrimSpace(nameOrGenericForm), "]") {
			return "", nil, merr.WrapErrRegistrationInvalid(nameOrGenericForm, "array suffix form cannot be registered")
		}
		return declare(typeexpr.ArrayBase, nameOrGenericForm, []typeexpr.Expr{e.Elem})
	}
	return "", nil, merr.WrapErrRegistrationInvalid(nameOrGenericForm, "nullable type cannot be registered")
}

func declare(base, src string, args []typeexpr.Expr) (string, []string, error) {
	params := make([]string, len(args))
	seen := make(map[string]struct{}, len(args))
	for i, arg := range args {
		n, ok := arg.(typeexpr.Named)
		if !ok || len(n.Args) != 0 {
			return "", nil, merr.WrapErrRegistrationInvalid(src, "type parameter must be a bare name: "+arg.String())
		}
		if _, dup := seen[n.Name]; dup {
			return "", nil, merr.WrapErrRegistrationInvalid(src, "duplicate type parameter "+n.Name)
		}
		seen[n.Name] = struct{}{}
		params[i] = n.Name
	}
	return base, params, nil
}

// Freeze 结束注册阶段，此后所有 Register* 调用都返回 ErrRegistryFrozen。
func (r *Registry) Freeze() {
	if r.frozen.CompareAndSwap(false, true) {
		r.Logger().Debug("serializer registry frozen",
			zap.Int("plain", len(r.plain)),
			zap.Int("generic", len(r.generic)))
	}
}

// Frozen 返回注册表是否已冻结。
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Serialize 按类型字符串序列化 value。
func (r *Registry) Serialize(value any, typeString string) (any, error) {
	s, err := r.Lookup(typeString)
	if err != nil {
		return nil, err
	}
	return s.Serialize(value)
}

// Deserialize 按类型字符串反序列化 value。
func (r *Registry) Deserialize(value any, typeString string) (any, error) {
	s, err := r.Lookup(typeString)
	if err != nil {
		return nil, err
	}
	return s.Deserialize(value)
}

// Lookup 将类型字符串解析为 Serializer。
func (r *Registry) Lookup(typeString string) (Serializer, error) {
	r.Freeze()
	if s, ok := r.cache.Load(typeString); ok {
		metrics.SerializerLookupTotal.WithLabelValues(metrics.LookupHit).Inc()
		return s.(Serializer), nil
	}
	e, err := typeexpr.Parse(typeString)
	if err != nil {
		r.observeError(typeString, err)
		return nil, err
	}
	return r.resolve(e)
}

func (r *Registry) resolve(e typeexpr.Expr) (Serializer, error) {
	key := e.String()
	if s, ok := r.cache.Load(key); ok {
		metrics.SerializerLookupTotal.WithLabelValues(metrics.LookupHit).Inc()
		return s.(Serializer), nil
	}
	s, err := r.instantiate(e)
	if err != nil {
		r.observeError(key, err)
		return nil, err
	}
	metrics.SerializerLookupTotal.WithLabelValues(metrics.LookupMiss).Inc()
	actual, _ := r.cache.LoadOrStore(key, s)
	return actual.(Serializer), nil
}

func (r *Registry) instantiate(e typeexpr.Expr) (Serializer, error) {
	if n, ok := e.(typeexpr.NullableOf); ok {
		inner, err := r.resolve(n.Inner)
		if err != nil {
			return nil, err
		}
		return nullable{inner: inner}, nil
	}

	d := typeexpr.Decompose(e)
	if len(d.Args) == 0 {
		if factory, ok := r.plain[d.Base]; ok {
			return factory(r, TypeEnvironment{})
		}
		if entry, ok := r.generic[d.Base]; ok {
			return nil, merr.WrapErrTypeArityMismatch(d.Base, len(entry.params), 0)
		}
		return nil, merr.WrapErrTypeUnresolvable(d.Base)
	}

	entry, ok := r.generic[d.Base]
	if !ok {
		if _, plain := r.plain[d.Base]; plain {
			return nil, merr.WrapErrTypeArityMismatch(d.Base, 0, len(d.Args))
		}
		return nil, merr.WrapErrTypeUnresolvable(e.String())
	}
	if len(entry.params) != len(d.Args) {
		return nil, merr.WrapErrTypeArityMismatch(d.Base, len(entry.params), len(d.Args))
	}
	env := make(TypeEnvironment, len(entry.params))
	for i, p := range entry.params {
		env[p] = d.Args[i]
	}
	return entry.factory(r, env)
}

func (r *Registry) observeError(typeString string, err error) {
	kind := errorKind(err)
	metrics.SerializerLookupTotal.WithLabelValues(metrics.LookupError).Inc()
	metrics.SerializerResolveErrorsTotal.WithLabelValues(kind).Inc()
	r.Logger().WithRateGroup("serializer.resolve", 1, 60).
		RatedWarn(1, "failed to resolve type", log.FieldType(typeString), log.FieldKind(kind), zap.Error(err))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, merr.ErrTypeMalformed):
		return "malformed"
	case errors.Is(err, merr.ErrTypeArityMismatch):
		return "arity"
	case errors.Is(err, merr.ErrTypeUnresolvable):
		return "unresolvable"
	default:
		return "other"
	}
}
