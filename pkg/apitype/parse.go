package apitype

import (
	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

// 类型字符串中的裸名本身无法区分类、黑盒与类型变量，
// 解析时需要调用方通过 ParseOption 提供作用域信息；未声明的裸名视为 Class。
type parseScope struct {
	variables  map[string]struct{}
	blackBoxes map[TypeName]struct{}
}

// ParseOption 配置 Parse 的作用域。
type ParseOption func(*parseScope)

// WithVariables 声明作用域内的类型变量。
func WithVariables(names ...string) ParseOption {
	return func(s *parseScope) {
		for _, name := range names {
			s.variables[name] = struct{}{}
		}
	}
}

// WithBlackBoxes 声明作用域内的黑盒类型。
func WithBlackBoxes(names ...TypeName) ParseOption {
	return func(s *parseScope) {
		for _, name := range names {
			s.blackBoxes[name] = struct{}{}
		}
	}
}

// Parse 将类型字符串解析为 Type。对任意可由语法表达的 t，
// Parse(t.TypeRepresentation(), 对应作用域) 与 t 相等。
func Parse(s string, opts ...ParseOption) (Type, error) {
	e, err := typeexpr.Parse(s)
	if err != nil {
		return nil, err
	}
	return FromExpr(e, opts...)
}

// MustParse 与 Parse 相同，失败时 panic。
func MustParse(s string, opts ...ParseOption) Type {
	t, err := Parse(s, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromExpr 将语法树转换为 Type。
func FromExpr(e typeexpr.Expr, opts ...ParseOption) (Type, error) {
	scope := &parseScope{
		variables:  make(map[string]struct{}),
		blackBoxes: make(map[TypeName]struct{}),
	}
	for _, opt := range opts {
		opt(scope)
	}
	return scope.convert(e)
}

func (s *parseScope) convert(e typeexpr.Expr) (Type, error) {
	switch e := e.(type) {
	case typeexpr.NullableOf:
		inner, err := s.convert(e.Inner)
		if err != nil {
			return nil, err
		}
		return NewNullable(inner), nil
	case typeexpr.ArrayOf:
		elem, err := s.convert(e.Elem)
		if err != nil {
			return nil, err
		}
		return NewArray(elem), nil
	case typeexpr.Named:
		if len(e.Args) == 0 {
			return s.convertName(e.Name), nil
		}
		args := make([]Type, len(e.Args))
		for i, arg := range e.Args {
			t, err := s.convert(arg)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		if e.Name == typeexpr.DictionaryBase {
			if len(args) != 1 {
				return nil, merr.WrapErrTypeArityMismatch(typeexpr.DictionaryBase, 1, len(args))
			}
			return NewDictionary(args[0]), nil
		}
		return ParameterizedClass{Name: TypeName(e.Name), Arguments: args}, nil
	}
	return nil, merr.WrapErrTypeMalformed("", "unknown expression")
}

func (s *parseScope) convertName(name string) Type {
	if p, ok := LookupPrimitive(name); ok {
		return p
	}
	if _, ok := s.variables[name]; ok {
		return NewVariable(name)
	}
	if _, ok := s.blackBoxes[TypeName(name)]; ok {
		return NewBlackBox(TypeName(name))
	}
	return NewClass(TypeName(name))
}

// ToExpr 将 Type 转换为语法树，ToExpr(t).String() 总是等于 t.TypeRepresentation()。
func ToExpr(t Type) typeexpr.Expr {
	switch t := t.(type) {
	case Array:
		return typeexpr.Array(ToExpr(t.Elem))
	case Dictionary:
		return typeexpr.Generic(typeexpr.DictionaryBase, ToExpr(t.Value))
	case Nullable:
		return typeexpr.Nullable(ToExpr(t.Type))
	case ParameterizedClass:
		args := make([]typeexpr.Expr, len(t.Arguments))
		for i, arg := range t.Arguments {
			args[i] = ToExpr(arg)
		}
		return typeexpr.Generic(t.Name.String(), args...)
	}
	return typeexpr.Name(t.TypeRepresentation())
}
