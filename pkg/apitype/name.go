package apitype

import (
	"strings"
)

// TypeName 是类与黑盒类型的限定名，例如 com.example.Person。
// 两个 TypeName 当且仅当限定名字符串相同时相等，可直接用作 map 键。
type TypeName string

// NewTypeName 构造一个 TypeName。
func NewTypeName(qualified string) TypeName {
	return TypeName(qualified)
}

// String 返回限定名。
func (n TypeName) String() string {
	return string(n)
}

// Name 返回最后一个 '.' 之后的简单名。
func (n TypeName) Name() string {
	s := string(n)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Compare 按限定名字典序比较，返回 -1、0 或 1。
func (n TypeName) Compare(other TypeName) int {
	return strings.Compare(string(n), string(other))
}
