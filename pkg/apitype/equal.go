package apitype

// Equal 判断两个类型在结构上是否相同。
//
// ParameterizedClass 同时比较名称和全部类型参数：Page<Person> 与
// Page<Order> 是不同的类型，去重时不能合并。
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Array:
		b, ok := b.(Array)
		return ok && Equal(a.Elem, b.Elem)
	case BlackBox:
		b, ok := b.(BlackBox)
		return ok && a.Name == b.Name
	case Class:
		b, ok := b.(Class)
		return ok && a.Name == b.Name
	case Dictionary:
		b, ok := b.(Dictionary)
		return ok && Equal(a.Value, b.Value)
	case Nullable:
		b, ok := b.(Nullable)
		return ok && Equal(a.Type, b.Type)
	case Primitive:
		b, ok := b.(Primitive)
		return ok && a == b
	case Variable:
		b, ok := b.(Variable)
		return ok && a.Name == b.Name
	case ParameterizedClass:
		b, ok := b.(ParameterizedClass)
		if !ok || a.Name != b.Name || len(a.Arguments) != len(b.Arguments) {
			return false
		}
		for i := range a.Arguments {
			if !Equal(a.Arguments[i], b.Arguments[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Substitute 将 t 中名称出现在 bindings 里的 Variable 替换为绑定的类型。
// 替换进来的类型不会被再次扫描。
func Substitute(t Type, bindings map[string]Type) Type {
	if len(bindings) == 0 {
		return t
	}
	switch t := t.(type) {
	case Variable:
		if bound, ok := bindings[t.Name]; ok {
			return bound
		}
		return t
	case Array:
		return NewArray(Substitute(t.Elem, bindings))
	case Dictionary:
		return NewDictionary(Substitute(t.Value, bindings))
	case Nullable:
		return NewNullable(Substitute(t.Type, bindings))
	case ParameterizedClass:
		args := make([]Type, len(t.Arguments))
		for i, arg := range t.Arguments {
			args[i] = Substitute(arg, bindings)
		}
		return ParameterizedClass{Name: t.Name, Arguments: args}
	}
	return t
}
