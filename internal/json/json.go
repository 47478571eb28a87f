// Package json 统一项目内的 JSON 编解码实现。
//
// 热路径（wire 编解码）使用 bytedance/sonic；需要稳定输出（键排序）的场景，
// 例如清单文件的生成，使用 json-iterator 的排序配置。
package json

import (
	"io"

	"github.com/bytedance/sonic"
	jsoniter "github.com/json-iterator/go"
)

var (
	api = sonic.ConfigStd

	canonical = jsoniter.Config{
		SortMapKeys:            true,
		EscapeHTML:             false,
		ValidateJsonRawMessage: true,
	}.Froze()
)

// Marshal 使用 sonic 编码。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal 使用 sonic 解码，数字解码为 float64，与 encoding/json 保持一致。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid 判断 data 是否为合法 JSON。
func Valid(data []byte) bool {
	return api.Valid(data)
}

// MarshalCanonical 以键排序、带缩进的形式编码，输出对相同输入稳定。
func MarshalCanonical(v any) ([]byte, error) {
	return canonical.MarshalIndent(v, "", "  ")
}

// NewCanonicalEncoder 返回写入 w 的稳定输出编码器。
func NewCanonicalEncoder(w io.Writer) *jsoniter.Encoder {
	enc := canonical.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

// NewDecoder 返回从 r 读取的解码器。
func NewDecoder(r io.Reader) *jsoniter.Decoder {
	return canonical.NewDecoder(r)
}
