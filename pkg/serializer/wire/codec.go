package wire

import (
	"github.com/cockroachdb/errors"
)

// Converter 是 Codec 需要的序列化运行时能力，由 serializer.Registry 实现。
type Converter interface {
	Serialize(value any, typeString string) (any, error)
	Deserialize(value any, typeString string) (any, error)
}

// Codec 把类型驱动的序列化与字节编码串起来。
type Codec struct {
	conv      Converter
	marshaler Marshaler
}

// NewCodec 创建 Codec，marshaler 为 nil 时使用 JSON。
func NewCodec(conv Converter, marshaler Marshaler) *Codec {
	if marshaler == nil {
		marshaler = JSONMarshaler{}
	}
	return &Codec{conv: conv, marshaler: marshaler}
}

// Encode 先按类型序列化 value，再编码为字节。
func (c *Codec) Encode(value any, typeString string) ([]byte, error) {
	wireValue, err := c.conv.Serialize(value, typeString)
	if err != nil {
		return nil, err
	}
	data, err := c.marshaler.Marshal(wireValue)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", typeString)
	}
	return data, nil
}

// Decode 先解码字节，再按类型反序列化。
func (c *Codec) Decode(data []byte, typeString string) (any, error) {
	var wireValue any
	if err := c.marshaler.Unmarshal(data, &wireValue); err != nil {
		return nil, errors.Wrapf(err, "decode %s", typeString)
	}
	return c.conv.Deserialize(wireValue, typeString)
}
