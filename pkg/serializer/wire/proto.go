package wire

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoMarshaler 将线上值映射为 google.protobuf.Value 后做二进制编码。
//
// 已经是 proto.Message 的值按消息本身编解码。数字统一解码为 float64。
type ProtoMarshaler struct{}

var _ Marshaler = (*ProtoMarshaler)(nil)

func (ProtoMarshaler) Marshal(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return proto.Marshal(msg)
	}
	pv, err := structpb.NewValue(v)
	if err != nil {
		return nil, errors.Wrapf(err, "wire: cannot encode %T as protobuf value", v)
	}
	return proto.Marshal(pv)
}

func (ProtoMarshaler) Unmarshal(data []byte, v any) error {
	switch target := v.(type) {
	case proto.Message:
		return proto.Unmarshal(data, target)
	case *any:
		pv := &structpb.Value{}
		if err := proto.Unmarshal(data, pv); err != nil {
			return errors.Wrap(err, "wire: decode protobuf value")
		}
		*target = pv.AsInterface()
		return nil
	}
	return errors.Newf("wire: ProtoMarshaler requires *any or proto.Message, got %T", v)
}
