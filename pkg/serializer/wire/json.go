package wire

import (
	"github.com/lk2023060901/typewire-go/internal/json"
)

// JSONMarshaler 使用 internal/json（基于 bytedance/sonic）编解码，数字解码为 float64。
type JSONMarshaler struct{}

var _ Marshaler = (*JSONMarshaler)(nil)

func (JSONMarshaler) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONMarshaler) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
