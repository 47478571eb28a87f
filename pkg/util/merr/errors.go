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
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	// ConfigError 表示生成代码与运行时不匹配、缺少注册等配置类错误，不可重试。
	ConfigError ErrorType = 0
	// DataError 表示单次调用传入的数据形状不合法。
	DataError ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	ConfigError: "config_error",
	DataError:   "data_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 叶子错误统一定义在这里。
// WARN: 新增错误前请先确认下面已有的错误是否可以复用。
// 命名规则：Err + 相关前缀 + 错误名
var (
	// 类型解析相关
	ErrTypeUnresolvable  = newTypewireError("type unresolvable", 100, ConfigError)
	ErrTypeMalformed     = newTypewireError("type string malformed", 101, ConfigError)
	ErrTypeArityMismatch = newTypewireError("type argument arity mismatch", 102, ConfigError)

	// 注册表相关
	ErrRegistryFrozen       = newTypewireError("serializer registry frozen", 200, ConfigError)
	ErrRegistrationInvalid  = newTypewireError("serializer registration invalid", 201, ConfigError)
	ErrEnumConstantConflict = newTypewireError("enum constant conflict", 202, ConfigError)

	// 数据相关
	ErrValueMismatch = newTypewireError("value does not match type", 300, DataError)

	// 清单（manifest）相关
	ErrManifestInvalid = newTypewireError("manifest invalid", 400, ConfigError)
	ErrManifestVersion = newTypewireError("manifest format version unsupported", 401, ConfigError)

	// 参数相关
	ErrParameterInvalid = newTypewireError("invalid parameter", 1100, ConfigError)

	// 不导出：仅用于把未知错误转换为 typewireError。
	errUnexpected = newTypewireError("unexpected error", (1<<16)-1, ConfigError)
)

type errorOption func(*typewireError)

func WithDetail(detail string) errorOption {
	return func(err *typewireError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *typewireError) {
		err.errType = etype
	}
}

type typewireError struct {
	msg     string
	detail  string
	errCode int32
	errType ErrorType
}

func newTypewireError(msg string, code int32, etype ErrorType, options ...errorOption) typewireError {
	err := typewireError{
		msg:     msg,
		detail:  msg,
		errCode: code,
		errType: etype,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e typewireError) code() int32 {
	return e.errCode
}

func (e typewireError) Error() string {
	return e.msg
}

func (e typewireError) Detail() string {
	return e.detail
}

func (e typewireError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(typewireError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多个错误的 cause 取最后一个，保证 Code 对组合错误同样可用。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

// Errors 返回组合错误中的全部子错误；非组合错误返回只含自身的切片。
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	var me multiErrors
	if errors.As(err, &me) {
		return me.errs
	}
	return []error{err}
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
