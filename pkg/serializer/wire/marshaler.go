// Package wire 负责线上值与字节之间的编解码。
//
// serializer.Registry 只在用户侧值与 JSON 形态的线上值之间转换；
// 本包在此之上把线上值写成 JSON 或 Protobuf 字节，供传输或落盘。
package wire

import (
	"strings"

	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

const (
	FormatJSON  = "json"
	FormatProto = "proto"
)

// Marshaler 抽象了“线上值 <-> 字节流”的编码能力。
type Marshaler interface {
	// Marshal 将线上值编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到 v，v 通常为 *any。
	Unmarshal(data []byte, v any) error
}

// ForFormat 按名称返回 Marshaler，名称不区分大小写。
func ForFormat(format string) (Marshaler, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return JSONMarshaler{}, nil
	case FormatProto, "protobuf":
		return ProtoMarshaler{}, nil
	}
	return nil, merr.WrapErrParameterInvalid("json|proto", format, "unknown wire format")
}
