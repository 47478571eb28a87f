// Package apitype 定义规范化、与生态无关的类型代数。
//
// 每个从类元数据中提取出的类型都对应唯一的 Type 值；
// TypeRepresentation 的结果就是嵌入到生成代码中的类型字符串，
// 运行时通过同一套语法（见 typeexpr）将其解析回序列化行为。
package apitype

import (
	"slices"
	"strings"

	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
)

// Type 是所有类型变体实现的接口。变体集合是封闭的。
type Type interface {
	// TypeRepresentation 返回规范类型字符串。
	TypeRepresentation() string

	// String 与 TypeRepresentation 相同。
	String() string

	// Unwrap 对 Nullable 返回被包装的类型，其余变体返回自身。
	Unwrap() Type

	// aType 是限制实现只能位于本包内的标记方法。
	aType()
}

// typ 是所有变体的公共嵌入类型。
type typ struct{}

func (typ) aType() {}

// Array 表示元素类型为 Elem 的数组。
type Array struct {
	typ
	Elem Type
}

// BlackBox 表示生成器原样透传、不展开结构的类型。
type BlackBox struct {
	typ
	Name TypeName
}

// Class 表示类类型，按名称全序。
type Class struct {
	typ
	Name TypeName
}

// Dictionary 表示键为字符串、值为 Value 的字典。
type Dictionary struct {
	typ
	Value Type
}

// Nullable 表示可空类型。通过 NewNullable 构造以保证不会嵌套。
type Nullable struct {
	typ
	Type Type
}

// Variable 表示尚未绑定的泛型参数，例如 T。
type Variable struct {
	typ
	Name string
}

// ParameterizedClass 表示带类型参数的类实例，例如 Page<Person>。
type ParameterizedClass struct {
	typ
	Name      TypeName
	Arguments []Type
}

// NewArray 构造数组类型。
func NewArray(elem Type) Array {
	return Array{Elem: elem}
}

// NewBlackBox 构造黑盒类型。
func NewBlackBox(name TypeName) BlackBox {
	return BlackBox{Name: name}
}

// NewClass 构造类类型。
func NewClass(name TypeName) Class {
	return Class{Name: name}
}

// NewDictionary 构造字典类型。
func NewDictionary(value Type) Dictionary {
	return Dictionary{Value: value}
}

// NewNullable 构造可空类型；t 已经可空时原样返回。
func NewNullable(t Type) Type {
	if n, ok := t.(Nullable); ok {
		return n
	}
	return Nullable{Type: t}
}

// NewVariable 构造类型变量。
func NewVariable(name string) Variable {
	return Variable{Name: name}
}

// NewParameterizedClass 构造泛型类实例，参数切片会被复制。
func NewParameterizedClass(name TypeName, args ...Type) ParameterizedClass {
	return ParameterizedClass{Name: name, Arguments: slices.Clone(args)}
}

func (a Array) TypeRepresentation() string {
	if _, ok := a.Elem.(Nullable); ok {
		return typeexpr.ArrayBase + "<" + a.Elem.TypeRepresentation() + ">"
	}
	return a.Elem.TypeRepresentation() + typeexpr.ArraySuffix
}

func (b BlackBox) TypeRepresentation() string {
	return b.Name.String()
}

func (c Class) TypeRepresentation() string {
	return c.Name.String()
}

func (d Dictionary) TypeRepresentation() string {
	return typeexpr.DictionaryBase + "<" + d.Value.TypeRepresentation() + ">"
}

func (n Nullable) TypeRepresentation() string {
	return n.Type.TypeRepresentation() + typeexpr.NullSuffix
}

func (v Variable) TypeRepresentation() string {
	return v.Name
}

// TypeRepresentation 在没有参数时只输出类名，与 Class 的表示一致。
func (p ParameterizedClass) TypeRepresentation() string {
	if len(p.Arguments) == 0 {
		return p.Name.String()
	}
	var b strings.Builder
	b.WriteString(p.Name.String())
	b.WriteByte('<')
	for i, arg := range p.Arguments {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(arg.TypeRepresentation())
	}
	b.WriteByte('>')
	return b.String()
}

func (a Array) String() string              { return a.TypeRepresentation() }
func (b BlackBox) String() string           { return b.TypeRepresentation() }
func (c Class) String() string              { return c.TypeRepresentation() }
func (d Dictionary) String() string         { return d.TypeRepresentation() }
func (n Nullable) String() string           { return n.TypeRepresentation() }
func (v Variable) String() string           { return v.TypeRepresentation() }
func (p ParameterizedClass) String() string { return p.TypeRepresentation() }

func (a Array) Unwrap() Type              { return a }
func (b BlackBox) Unwrap() Type           { return b }
func (c Class) Unwrap() Type              { return c }
func (d Dictionary) Unwrap() Type         { return d }
func (n Nullable) Unwrap() Type           { return n.Type }
func (v Variable) Unwrap() Type           { return v }
func (p ParameterizedClass) Unwrap() Type { return p }

// Compare 按名称比较两个类类型。
func (c Class) Compare(other Class) int {
	return c.Name.Compare(other.Name)
}

// Compare 先按名称、名称相同时按规范字符串比较。
func (p ParameterizedClass) Compare(other ParameterizedClass) int {
	if c := p.Name.Compare(other.Name); c != 0 {
		return c
	}
	return strings.Compare(p.TypeRepresentation(), other.TypeRepresentation())
}

// SortClasses 按名称对类类型原地排序，保证生成结果的顺序确定。
func SortClasses(classes []Class) {
	slices.SortFunc(classes, Class.Compare)
}

// IsNullable 判断 t 是否可空。
func IsNullable(t Type) bool {
	_, ok := t.(Nullable)
	return ok
}
