package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameType      = "type"
	FieldNameKind      = "kind"
)

// FieldModule 返回模块名字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回组件名字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldType 返回类型字符串字段。
func FieldType(typeString string) zap.Field {
	return zap.String(FieldNameType, typeString)
}

// FieldKind 返回注册类别字段，例如 class、enum。
func FieldKind(kind string) zap.Field {
	return zap.String(FieldNameKind, kind)
}
