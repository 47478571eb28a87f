// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码，nil 返回 0。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case typewireError:
		return specificErr.code()
	default:
		return errUnexpected.code()
	}
}

// IsResolutionError 判断错误是否属于类型解析失败（无法解析、格式错误、参数个数不匹配）。
// 这一类错误说明生成代码与运行时版本不一致或缺少注册，调用方不应重试。
func IsResolutionError(err error) bool {
	return errors.IsAny(err, ErrTypeUnresolvable, ErrTypeMalformed, ErrTypeArityMismatch)
}

func GetErrorType(err error) ErrorType {
	var terr typewireError
	if errors.As(err, &terr) {
		return terr.errType
	}
	return ConfigError
}

// 类型解析相关错误封装。
func WrapErrTypeUnresolvable(typ string, msg ...string) error {
	err := wrapFields(ErrTypeUnresolvable, value("type", typ))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeMalformed(typ string, reason string) error {
	return wrapFieldsWithDesc(ErrTypeMalformed, reason, value("type", typ))
}

func WrapErrTypeArityMismatch(base string, expected, actual int, msg ...string) error {
	err := wrapFields(ErrTypeArityMismatch,
		value("base", base),
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// 注册表相关错误封装。
func WrapErrRegistryFrozen(name string) error {
	return wrapFields(ErrRegistryFrozen, value("name", name))
}

func WrapErrRegistrationInvalid(name string, reason string) error {
	return wrapFieldsWithDesc(ErrRegistrationInvalid, reason, value("name", name))
}

func WrapErrEnumConstantConflict(enum string, constant any, msg ...string) error {
	err := wrapFields(ErrEnumConstantConflict, value("enum", enum), value("constant", constant))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// 数据相关错误封装。
func WrapErrValueMismatch(typ string, v any, msg ...string) error {
	err := wrapFields(ErrValueMismatch, value("type", typ), value("value", fmt.Sprintf("%T", v)))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// 清单相关错误封装。
func WrapErrManifestInvalid(source string, reason string) error {
	return wrapFieldsWithDesc(ErrManifestInvalid, reason, value("source", source))
}

func WrapErrManifestVersion(version string, supported string) error {
	return wrapFields(ErrManifestVersion, value("version", version), value("supported", supported))
}

// 参数相关错误封装。
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func wrapFields(err typewireError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err typewireError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
