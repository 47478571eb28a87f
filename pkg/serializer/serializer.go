// Package serializer 是类型字符串驱动的序列化运行时。
//
// 生成的客户端代码在启动时向 Registry 注册类、枚举与自定义序列化器，
// 之后每次调用都只携带类型字符串（例如 "Page<Person>[] | null"），
// Registry 负责把它解析为可执行的 Serializer，并在解析时绑定泛型参数。
//
// 运行时处理的值是 JSON 形态的动态值：nil、string、float64 等数字、bool、
// []any、map[string]any，以及枚举或自定义序列化器映射出的用户侧值。
package serializer

import (
	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
)

// Serializer 在用户侧值与线上值之间双向转换。
// 对格式正确的数据，Deserialize(Serialize(v)) 与 v 相等。
type Serializer interface {
	Serialize(v any) (any, error)
	Deserialize(v any) (any, error)
}

// Resolver 把类型字符串解析为 Serializer，由 Registry 实现并传给 Factory。
type Resolver interface {
	Lookup(typeString string) (Serializer, error)
}

// Factory 在给定的类型环境下构造 Serializer。
// 非泛型注册收到的环境为空；泛型注册收到按声明顺序绑定好的参数。
type Factory func(r Resolver, env TypeEnvironment) (Serializer, error)

// Funcs 用两个函数拼出一个 Serializer。
type Funcs struct {
	SerializeFunc   func(v any) (any, error)
	DeserializeFunc func(v any) (any, error)
}

func (f Funcs) Serialize(v any) (any, error) {
	return f.SerializeFunc(v)
}

func (f Funcs) Deserialize(v any) (any, error) {
	return f.DeserializeFunc(v)
}

type identity struct{}

func (identity) Serialize(v any) (any, error)   { return v, nil }
func (identity) Deserialize(v any) (any, error) { return v, nil }

// Identity 原样返回输入，用于基础类型与黑盒类型。
var Identity Serializer = identity{}

// Static 返回忽略类型环境、总是给出 s 的 Factory。
func Static(s Serializer) Factory {
	return func(Resolver, TypeEnvironment) (Serializer, error) {
		return s, nil
	}
}

// TypeEnvironment 是一次泛型解析中参数名到类型表达式的绑定，每次解析新建。
type TypeEnvironment map[string]typeexpr.Expr

// Lookup 返回参数绑定的规范类型字符串。
func (env TypeEnvironment) Lookup(name string) (string, bool) {
	e, ok := env[name]
	if !ok {
		return "", false
	}
	return e.String(), true
}

// Resolve 解析参数绑定的类型，参数未绑定时按 name 本身解析。
func (env TypeEnvironment) Resolve(r Resolver, name string) (Serializer, error) {
	if s, ok := env.Lookup(name); ok {
		return r.Lookup(s)
	}
	return r.Lookup(name)
}

// Substitute 将类型字符串中出现的已绑定参数结构化地替换为绑定的类型。
func (env TypeEnvironment) Substitute(typeString string) (string, error) {
	e, err := typeexpr.Parse(typeString)
	if err != nil {
		return "", err
	}
	return env.SubstituteExpr(e).String(), nil
}

// SubstituteExpr 与 Substitute 相同，作用于已解析的表达式。
func (env TypeEnvironment) SubstituteExpr(e typeexpr.Expr) typeexpr.Expr {
	return typeexpr.Substitute(e, env)
}
