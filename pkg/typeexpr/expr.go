// Package typeexpr 实现类型字符串的语法：解析、规范化输出、拆解与替换。
//
// 类型字符串是生成器输出与运行时之间唯一的兼容契约：
//
//	type     := postfix [ '|' 'null' ]
//	postfix  := primary { '[' ']' }
//	primary  := ident [ '<' type { ',' type } '>' ]
//
// 规范形式中除 " | null" 后缀外不含空白，数组使用后缀形式 E[]；
// 当元素本身可空时使用 Array<E | null>，避免 "E | null[]" 的歧义。
package typeexpr

import (
	"strings"
)

const (
	// ArrayBase 是数组在注册表中的泛型基名。
	ArrayBase = "Array"
	// DictionaryBase 是字典在注册表中的泛型基名，键总是字符串。
	DictionaryBase = "Dictionary"

	ArraySuffix = "[]"
	NullSuffix  = " | null"
	nullKeyword = "null"
)

// Expr 是解析后的类型表达式。实现集合是封闭的：Named、ArrayOf、NullableOf。
type Expr interface {
	// String 返回规范形式。
	String() string
	isExpr()
}

// Named 表示裸名或带参数的泛型实例，例如 Person、T、Page<T>。
type Named struct {
	Name string
	Args []Expr
}

// ArrayOf 表示数组类型。
type ArrayOf struct {
	Elem Expr
}

// NullableOf 表示可空类型。不会嵌套另一个 NullableOf，使用 Nullable 构造。
type NullableOf struct {
	Inner Expr
}

func (Named) isExpr()      {}
func (ArrayOf) isExpr()    {}
func (NullableOf) isExpr() {}

// Name 构造一个不带参数的 Named。
func Name(name string) Named {
	return Named{Name: name}
}

// Generic 构造一个泛型实例。
func Generic(name string, args ...Expr) Named {
	return Named{Name: name, Args: args}
}

// Array 构造数组表达式。
func Array(elem Expr) ArrayOf {
	return ArrayOf{Elem: elem}
}

// Nullable 构造可空表达式，已可空的表达式原样返回。
func Nullable(e Expr) Expr {
	if n, ok := e.(NullableOf); ok {
		return n
	}
	return NullableOf{Inner: e}
}

func (n Named) String() string {
	if len(n.Args) == 0 {
		return n.Name
	}
	var b strings.Builder
	b.WriteString(n.Name)
	b.WriteByte('<')
	for i, arg := range n.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(arg.String())
	}
	b.WriteByte('>')
	return b.String()
}

func (a ArrayOf) String() string {
	if _, ok := a.Elem.(NullableOf); ok {
		return ArrayBase + "<" + a.Elem.String() + ">"
	}
	return a.Elem.String() + ArraySuffix
}

func (n NullableOf) String() string {
	return n.Inner.String() + NullSuffix
}

// Equal 判断两个表达式结构上是否相同。
func Equal(a, b Expr) bool {
	switch a := a.(type) {
	case Named:
		b, ok := b.(Named)
		if !ok || a.Name != b.Name || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	case ArrayOf:
		b, ok := b.(ArrayOf)
		return ok && Equal(a.Elem, b.Elem)
	case NullableOf:
		b, ok := b.(NullableOf)
		return ok && Equal(a.Inner, b.Inner)
	}
	return false
}

// Decoded 是类型字符串拆解后的结果。
type Decoded struct {
	// Base 为注册表查找使用的基名；数组后缀形式被改写为 Array。
	Base string
	// Args 为按顺序排列的参数；为空表示非泛型查找。
	Args []Expr
	// Nullable 表示最外层带有 " | null"。
	Nullable bool
}

// ArgStrings 返回参数的规范字符串形式。
func (d Decoded) ArgStrings() []string {
	out := make([]string, len(d.Args))
	for i, arg := range d.Args {
		out[i] = arg.String()
	}
	return out
}

// Decompose 将表达式拆为 (基名, 参数)。
func Decompose(e Expr) Decoded {
	var d Decoded
	if n, ok := e.(NullableOf); ok {
		d.Nullable = true
		e = n.Inner
	}
	switch e := e.(type) {
	case Named:
		d.Base, d.Args = e.Name, e.Args
	case ArrayOf:
		d.Base, d.Args = ArrayBase, []Expr{e.Elem}
	}
	return d
}

// Decode 解析 s 并拆为 (基名, 参数)。
func Decode(s string) (Decoded, error) {
	e, err := Parse(s)
	if err != nil {
		return Decoded{}, err
	}
	return Decompose(e), nil
}

// Substitute 将 bindings 中绑定的裸名替换为对应表达式。
//
// 替换覆盖整个类型、泛型参数（任意嵌套深度）和数组元素。
// 每个位置只替换一次，替换进来的子树不会再次扫描。
func Substitute(e Expr, bindings map[string]Expr) Expr {
	if len(bindings) == 0 {
		return e
	}
	switch e := e.(type) {
	case Named:
		if len(e.Args) == 0 {
			if bound, ok := bindings[e.Name]; ok {
				return bound
			}
			return e
		}
		args := make([]Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = Substitute(arg, bindings)
		}
		return Named{Name: e.Name, Args: args}
	case ArrayOf:
		return ArrayOf{Elem: Substitute(e.Elem, bindings)}
	case NullableOf:
		return Nullable(Substitute(e.Inner, bindings))
	}
	return e
}

// FreeNames 按首次出现顺序返回表达式中所有不带参数的裸名。
func FreeNames(e Expr) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case Named:
			if len(e.Args) == 0 {
				if _, ok := seen[e.Name]; !ok {
					seen[e.Name] = struct{}{}
					out = append(out, e.Name)
				}
				return
			}
			for _, arg := range e.Args {
				walk(arg)
			}
		case ArrayOf:
			walk(e.Elem)
		case NullableOf:
			walk(e.Inner)
		}
	}
	walk(e)
	return out
}
