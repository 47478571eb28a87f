// Package model 描述提取器输出的 API 定义：类、枚举与黑盒类型。
//
// ApiDefinition 是生成器与运行时之间的中间产物，可以写成清单文件随生成代码一起分发，
// 由 binding 包在客户端启动时注册到 serializer.Registry。
package model

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/typewire-go/pkg/apitype"
	"github.com/lk2023060901/typewire-go/pkg/typeexpr"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
	"github.com/lk2023060901/typewire-go/pkg/util/typeutil"
)

// Property 是类的一个属性。Type 是规范类型字符串，可以引用类的类型参数。
type Property struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// ClassDefinition 描述一个类，TypeParameters 非空时为泛型类。
type ClassDefinition struct {
	Name           apitype.TypeName `yaml:"name" json:"name"`
	TypeParameters []string         `yaml:"typeParameters,omitempty" json:"typeParameters,omitempty"`
	Properties     []Property       `yaml:"properties" json:"properties"`
}

// Type 返回类自身的类型：泛型类为以类型变量为参数的 ParameterizedClass。
func (c *ClassDefinition) Type() apitype.Type {
	if len(c.TypeParameters) == 0 {
		return apitype.NewClass(c.Name)
	}
	args := make([]apitype.Type, len(c.TypeParameters))
	for i, p := range c.TypeParameters {
		args[i] = apitype.NewVariable(p)
	}
	return apitype.NewParameterizedClass(c.Name, args...)
}

// RegistrationName 返回注册用的名字，例如 Page<T>。
func (c *ClassDefinition) RegistrationName() string {
	return c.Type().TypeRepresentation()
}

// Instantiate 返回每个类型参数都绑定为 arg 的实例类型字符串，例如 Page<any>。
func (c *ClassDefinition) Instantiate(arg apitype.Type) string {
	if len(c.TypeParameters) == 0 {
		return c.Name.String()
	}
	bindings := make(map[string]apitype.Type, len(c.TypeParameters))
	for _, p := range c.TypeParameters {
		bindings[p] = arg
	}
	return apitype.Substitute(c.Type(), bindings).TypeRepresentation()
}

// EnumDefinition 描述一个枚举及其常量，常量同时是线上值。
type EnumDefinition struct {
	Name      apitype.TypeName `yaml:"name" json:"name"`
	Constants []string         `yaml:"constants" json:"constants"`
}

// ApiDefinition 是一次提取的全部结果。
type ApiDefinition struct {
	FormatVersion string             `yaml:"formatVersion" json:"formatVersion"`
	Classes       []ClassDefinition  `yaml:"classes,omitempty" json:"classes,omitempty"`
	Enums         []EnumDefinition   `yaml:"enums,omitempty" json:"enums,omitempty"`
	BlackBoxes    []apitype.TypeName `yaml:"blackBoxes,omitempty" json:"blackBoxes,omitempty"`
}

// NewApiDefinition 创建当前格式版本的空定义。
func NewApiDefinition() *ApiDefinition {
	return &ApiDefinition{FormatVersion: FormatVersion}
}

// AddClass 添加类定义，同名类会被替换。
func (api *ApiDefinition) AddClass(c ClassDefinition) {
	for i := range api.Classes {
		if api.Classes[i].Name == c.Name {
			api.Classes[i] = c
			return
		}
	}
	api.Classes = append(api.Classes, c)
}

// AddEnum 添加枚举定义，同名枚举会被替换。
func (api *ApiDefinition) AddEnum(e EnumDefinition) {
	for i := range api.Enums {
		if api.Enums[i].Name == e.Name {
			api.Enums[i] = e
			return
		}
	}
	api.Enums = append(api.Enums, e)
}

// AddBlackBox 添加黑盒类型，重复添加被忽略。
func (api *ApiDefinition) AddBlackBox(names ...apitype.TypeName) {
	existing := typeutil.NewSet(api.BlackBoxes...)
	for _, name := range names {
		if !existing.Contain(name) {
			existing.Insert(name)
			api.BlackBoxes = append(api.BlackBoxes, name)
		}
	}
}

// Class 按名称查找类定义。
func (api *ApiDefinition) Class(name apitype.TypeName) (*ClassDefinition, bool) {
	for i := range api.Classes {
		if api.Classes[i].Name == name {
			return &api.Classes[i], true
		}
	}
	return nil, false
}

// Normalize 将类、枚举与黑盒类型按名称排序，使输出顺序确定。
func (api *ApiDefinition) Normalize() {
	slices.SortFunc(api.Classes, func(a, b ClassDefinition) int {
		return apitype.NewClass(a.Name).Compare(apitype.NewClass(b.Name))
	})
	slices.SortFunc(api.Enums, func(a, b EnumDefinition) int {
		return a.Name.Compare(b.Name)
	})
	slices.SortFunc(api.BlackBoxes, apitype.TypeName.Compare)
}

// PropertyType 解析类中某个属性的类型，类型参数解析为 Variable，黑盒名解析为 BlackBox。
func (api *ApiDefinition) PropertyType(c *ClassDefinition, p Property) (apitype.Type, error) {
	return apitype.Parse(p.Type,
		apitype.WithVariables(c.TypeParameters...),
		apitype.WithBlackBoxes(api.BlackBoxes...))
}

// Validate 检查定义内部是否自洽：名称不重复、类型参数合法、
// 属性类型只引用基础类型、已定义的类/枚举/黑盒以及所在类的类型参数。
func (api *ApiDefinition) Validate() error {
	var errs []error
	declared := typeutil.NewSet[string]()
	arity := make(map[string]int)

	declare := func(name apitype.TypeName, params int) {
		if name == "" || !typeexpr.IsIdentifier(name.String()) {
			errs = append(errs, merr.WrapErrManifestInvalid(name.String(), "invalid type name"))
			return
		}
		if _, ok := apitype.LookupPrimitive(name.String()); ok || name.String() == typeexpr.DictionaryBase || name.String() == typeexpr.ArrayBase {
			errs = append(errs, merr.WrapErrManifestInvalid(name.String(), "reserved type name"))
			return
		}
		if declared.Contain(name.String()) {
			errs = append(errs, merr.WrapErrManifestInvalid(name.String(), "duplicate type name"))
			return
		}
		declared.Insert(name.String())
		arity[name.String()] = params
	}

	for _, c := range api.Classes {
		declare(c.Name, len(c.TypeParameters))
	}
	for _, e := range api.Enums {
		declare(e.Name, 0)
		if len(e.Constants) == 0 {
			errs = append(errs, merr.WrapErrManifestInvalid(e.Name.String(), "enum without constants"))
		}
		for _, dup := range lo.FindDuplicates(e.Constants) {
			errs = append(errs, merr.WrapErrEnumConstantConflict(e.Name.String(), dup, "duplicate constant"))
		}
	}
	for _, b := range api.BlackBoxes {
		declare(b, 0)
	}

	for i := range api.Classes {
		c := &api.Classes[i]
		params := typeutil.NewSet[string]()
		for _, p := range c.TypeParameters {
			if !typeexpr.IsIdentifier(p) || params.Contain(p) || declared.Contain(p) {
				errs = append(errs, merr.WrapErrManifestInvalid(c.Name.String(), "invalid type parameter "+p))
			}
			params.Insert(p)
		}
		props := typeutil.NewSet[string]()
		for _, p := range c.Properties {
			if p.Name == "" || props.Contain(p.Name) {
				errs = append(errs, merr.WrapErrManifestInvalid(c.Name.String(), "invalid or duplicate property "+p.Name))
				continue
			}
			props.Insert(p.Name)
			t, err := api.PropertyType(c, p)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "property %s of %s", p.Name, c.Name))
				continue
			}
			if err := checkReferences(t, declared, arity); err != nil {
				errs = append(errs, errors.Wrapf(err, "property %s of %s", p.Name, c.Name))
			}
		}
	}
	return merr.Combine(errs...)
}

func checkReferences(t apitype.Type, declared typeutil.Set[string], arity map[string]int) error {
	switch t := t.(type) {
	case apitype.Class:
		if !declared.Contain(t.Name.String()) {
			return merr.WrapErrTypeUnresolvable(t.Name.String())
		}
		if n := arity[t.Name.String()]; n != 0 {
			return merr.WrapErrTypeArityMismatch(t.Name.String(), n, 0)
		}
	case apitype.ParameterizedClass:
		n, ok := arity[t.Name.String()]
		if !ok {
			return merr.WrapErrTypeUnresolvable(t.TypeRepresentation())
		}
		if n != len(t.Arguments) {
			return merr.WrapErrTypeArityMismatch(t.Name.String(), n, len(t.Arguments))
		}
		for _, arg := range t.Arguments {
			if err := checkReferences(arg, declared, arity); err != nil {
				return err
			}
		}
	case apitype.Array:
		return checkReferences(t.Elem, declared, arity)
	case apitype.Dictionary:
		return checkReferences(t.Value, declared, arity)
	case apitype.Nullable:
		return checkReferences(t.Type, declared, arity)
	}
	return nil
}
