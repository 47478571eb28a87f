package wire

import (
	"bytes"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// Compressor 抽象了单次压缩与解压。
type Compressor interface {
	Compress(dst, src []byte) ([]byte, error)
	Decompress(dst, src []byte) ([]byte, error)
}

// NopCompressor 原样返回输入。
type NopCompressor struct{}

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error)   { return src, nil }
func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) { return src, nil }

var (
	_ Compressor = NopCompressor{}
	_ Compressor = (*ZstdCompressor)(nil)
)

// zstdMagic 是 zstd 帧的起始字节。
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ZstdCompressor 基于 klauspost/compress/zstd，可被多个 goroutine 并发使用。
//
// 小于 MinSize 的输入不压缩；Decompress 遇到不以 zstd 帧开头的数据时原样返回，
// 因此压缩与未压缩的载荷可以混用。Close 会等待进行中的调用结束。
type ZstdCompressor struct {
	mu      sync.RWMutex
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	minSize int
}

// NewZstdCompressor 创建压缩器，concurrency <= 0 时使用 GOMAXPROCS。
func NewZstdCompressor(concurrency int, minSize int) (*ZstdCompressor, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithZeroFrames(true),
		zstd.WithEncoderConcurrency(concurrency))
	if err != nil {
		return nil, errors.Wrap(err, "create zstd encoder")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(concurrency))
	if err != nil {
		enc.Close()
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	return &ZstdCompressor{enc: enc, dec: dec, minSize: max(minSize, 0)}, nil
}

func (c *ZstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.enc == nil {
		return nil, zstd.ErrEncoderClosed
	}
	if len(src) < c.minSize {
		return src, nil
	}
	return c.enc.EncodeAll(src, dst[:0]), nil
}

func (c *ZstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dec == nil {
		return nil, zstd.ErrDecoderClosed
	}
	if !bytes.HasPrefix(src, zstdMagic) {
		return src, nil
	}
	out, err := c.dec.DecodeAll(src, dst[:0])
	return out, errors.Wrap(err, "zstd decompress")
}

// Close 释放编解码器，之后的调用返回错误。
func (c *ZstdCompressor) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}

// compressed 在 Marshaler 之外包一层压缩。
type compressed struct {
	inner Marshaler
	c     Compressor
}

// Compressed 返回先编码再压缩、先解压再解码的 Marshaler。
func Compressed(m Marshaler, c Compressor) Marshaler {
	if c == nil {
		return m
	}
	return compressed{inner: m, c: c}
}

func (m compressed) Marshal(v any) ([]byte, error) {
	data, err := m.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return m.c.Compress(nil, data)
}

func (m compressed) Unmarshal(data []byte, v any) error {
	plain, err := m.c.Decompress(nil, data)
	if err != nil {
		return err
	}
	return m.inner.Unmarshal(plain, v)
}
