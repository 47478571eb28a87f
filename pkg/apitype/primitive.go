package apitype

// Primitive 表示固定的基础类型集合。使用枚举值而不是引用单例，
// 相等性就是枚举值相等。
type Primitive int

const (
	Any Primitive = iota
	String
	Boolean
	Number
	Void
)

var primitiveNames = [...]string{
	Any:     "any",
	String:  "string",
	Boolean: "boolean",
	Number:  "number",
	Void:    "void",
}

// Primitives 按声明顺序返回全部基础类型。
func Primitives() []Primitive {
	return []Primitive{Any, String, Boolean, Number, Void}
}

// LookupPrimitive 根据名称查找基础类型。
func LookupPrimitive(name string) (Primitive, bool) {
	for p, n := range primitiveNames {
		if n == name {
			return Primitive(p), true
		}
	}
	return 0, false
}

func (p Primitive) aType() {}

func (p Primitive) TypeRepresentation() string {
	if p < 0 || int(p) >= len(primitiveNames) {
		return "invalid"
	}
	return primitiveNames[p]
}

func (p Primitive) String() string {
	return p.TypeRepresentation()
}

func (p Primitive) Unwrap() Type {
	return p
}
