package serializer

import (
	"reflect"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

const (
	// ArrayParam 与 DictionaryParam 是内置泛型声明的参数名。
	ArrayParam      = "V"
	DictionaryParam = "V"
)

// nullable 让 nil 直接通过，其余值交给 inner。
type nullable struct {
	inner Serializer
}

func (n nullable) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return n.inner.Serialize(v)
}

func (n nullable) Deserialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return n.inner.Deserialize(v)
}

// ArrayFactory 是 Array<V> 的工厂。
func ArrayFactory(r Resolver, env TypeEnvironment) (Serializer, error) {
	bound, err := single(typeexpr.ArrayBase, env)
	if err != nil {
		return nil, err
	}
	elem, err := r.Lookup(bound.String())
	if err != nil {
		return nil, err
	}
	return &array{typeString: typeexpr.Array(bound).String(), elem: elem}, nil
}

type array struct {
	typeString string
	elem       Serializer
}

func (a *array) Serialize(v any) (any, error) {
	return a.convert(v, a.elem.Serialize)
}

func (a *array) Deserialize(v any) (any, error) {
	return a.convert(v, a.elem.Deserialize)
}

func (a *array) convert(v any, fn func(any) (any, error)) (any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, merr.WrapErrValueMismatch(a.typeString, v)
	}
	if len(items) == 0 {
		return items, nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		converted, err := fn(item)
		if err != nil {
			return nil, errors.Wrapf(err, "%s element %d", a.typeString, i)
		}
		out[i] = converted
	}
	return out, nil
}

// DictionaryFactory 是 Dictionary<V> 的工厂，键总是字符串。
func DictionaryFactory(r Resolver, env TypeEnvironment) (Serializer, error) {
	bound, err := single(typeexpr.DictionaryBase, env)
	if err != nil {
		return nil, err
	}
	value, err := r.Lookup(bound.String())
	if err != nil {
		return nil, err
	}
	return &dictionary{
		typeString: typeexpr.Generic(typeexpr.DictionaryBase, bound).String(),
		value:      value,
	}, nil
}

type dictionary struct {
	typeString string
	value      Serializer
}

func (d *dictionary) Serialize(v any) (any, error) {
	return d.convert(v, d.value.Serialize)
}

func (d *dictionary) Deserialize(v any) (any, error) {
	return d.convert(v, d.value.Deserialize)
}

func (d *dictionary) convert(v any, fn func(any) (any, error)) (any, error) {
	if v == nil {
		return nil, nil
	}
	entries, ok := v.(map[string]any)
	if !ok {
		return nil, merr.WrapErrValueMismatch(d.typeString, v)
	}
	if len(entries) == 0 {
		return entries, nil
	}
	out := make(map[string]any, len(entries))
	for key, entry := range entries {
		converted, err := fn(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "%s key %q", d.typeString, key)
		}
		out[key] = converted
	}
	return out, nil
}

// single 返回单参数容器唯一的绑定，参数名不限，Array<E> 与 Array<V> 等价。
func single(base string, env TypeEnvironment) (typeexpr.Expr, error) {
	if len(env) != 1 {
		return nil, merr.WrapErrTypeArityMismatch(base, 1, len(env))
	}
	for _, bound := range env {
		return bound, nil
	}
	return nil, nil
}

// enum 在线上字符串与用户侧值之间做常数时间的双向查找。
type enum struct {
	name    string
	byWire  map[string]any
	byValue map[any]string
}

// NewEnum 由线上字符串到用户侧值的映射构造枚举序列化器。
// 用户侧值必须可比较且互不相同。
func NewEnum(name string, table map[string]any) (Serializer, error) {
	e := &enum{
		name:    name,
		byWire:  make(map[string]any, len(table)),
		byValue: make(map[any]string, len(table)),
	}
	wires := make([]string, 0, len(table))
	for wire := range table {
		wires = append(wires, wire)
	}
	sort.Strings(wires)
	for _, wire := range wires {
		value := table[wire]
		if value == nil || !reflect.ValueOf(value).Comparable() {
			return nil, merr.WrapErrEnumConstantConflict(name, wire, "value is not comparable")
		}
		if prev, ok := e.byValue[value]; ok {
			return nil, merr.WrapErrEnumConstantConflict(name, wire, "same value as "+prev)
		}
		e.byWire[wire] = value
		e.byValue[value] = wire
	}
	return e, nil
}

// NewEnumConstants 构造线上值与用户侧值都是常量名本身的枚举序列化器。
func NewEnumConstants(name string, constants ...string) (Serializer, error) {
	table := make(map[string]any, len(constants))
	for _, c := range constants {
		if _, ok := table[c]; ok {
			return nil, merr.WrapErrEnumConstantConflict(name, c, "duplicate constant")
		}
		table[c] = c
	}
	return NewEnum(name, table)
}

func (e *enum) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	// 类型可比较但字段里装着切片的值同样不能作为 map 键。
	if !reflect.ValueOf(v).Comparable() {
		return nil, merr.WrapErrValueMismatch(e.name, v, "value is not comparable")
	}
	wire, ok := e.byValue[v]
	if !ok {
		return nil, merr.WrapErrValueMismatch(e.name, v, "unknown enum value")
	}
	return wire, nil
}

func (e *enum) Deserialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	wire, ok := v.(string)
	if !ok {
		return nil, merr.WrapErrValueMismatch(e.name, v)
	}
	value, ok := e.byWire[wire]
	if !ok {
		return nil, merr.WrapErrValueMismatch(e.name, v, "unknown enum constant "+wire)
	}
	return value, nil
}

// Field 是类的一个声明属性及其类型字符串，类型中可以引用类的类型参数。
type Field struct {
	Name string
	Type string
}

// ClassFactory 返回按字段表序列化对象的工厂。字段类型在注册时解析，
// 在第一次用到时才经类型环境替换并解析，因此 TreeNode<T> 这类递归泛型可以工作。
func ClassFactory(name string, fields []Field) (Factory, error) {
	parsed := make([]parsedField, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, merr.WrapErrRegistrationInvalid(name, "empty field name")
		}
		if _, ok := seen[f.Name]; ok {
			return nil, merr.WrapErrRegistrationInvalid(name, "duplicate field "+f.Name)
		}
		seen[f.Name] = struct{}{}
		e, err := typeexpr.Parse(f.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s of %s", f.Name, name)
		}
		parsed = append(parsed, parsedField{name: f.Name, typ: e})
	}
	return func(r Resolver, env TypeEnvironment) (Serializer, error) {
		c := &class{name: name, r: r, fields: make([]*classField, len(parsed))}
		for i, f := range parsed {
			c.fields[i] = &classField{name: f.name, typ: env.SubstituteExpr(f.typ)}
		}
		return c, nil
	}, nil
}

// FieldsOf 将 name → type 映射按字段名排序后转换为 Field 列表。
func FieldsOf(fields map[string]string) []Field {
	out := make([]Field, 0, len(fields))
	for name, typ := range fields {
		out = append(out, Field{Name: name, Type: typ})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type parsedField struct {
	name string
	typ  typeexpr.Expr
}

type class struct {
	name   string
	r      Resolver
	fields []*classField
}

type classField struct {
	name string
	typ  typeexpr.Expr

	once sync.Once
	s    Serializer
	err  error
}

func (f *classField) serializer(r Resolver) (Serializer, error) {
	f.once.Do(func() {
		f.s, f.err = r.Lookup(f.typ.String())
	})
	return f.s, f.err
}

func (c *class) Serialize(v any) (any, error) {
	return c.convert(v, Serializer.Serialize)
}

func (c *class) Deserialize(v any) (any, error) {
	return c.convert(v, Serializer.Deserialize)
}

func (c *class) convert(v any, fn func(Serializer, any) (any, error)) (any, error) {
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, merr.WrapErrValueMismatch(c.name, v)
	}
	out := make(map[string]any, len(c.fields))
	for _, f := range c.fields {
		fv, present := obj[f.name]
		if !present {
			continue
		}
		s, err := f.serializer(c.r)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s of %s", f.name, c.name)
		}
		converted, err := fn(s, fv)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s of %s", f.name, c.name)
		}
		out[f.name] = converted
	}
	return out, nil
}

// fieldTypes 返回经类型环境替换后的字段类型，供 Verify 遍历。
func (c *class) fieldTypes() []typeexpr.Expr {
	out := make([]typeexpr.Expr, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.typ
	}
	return out
}
