package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// DefaultMaxFrameSize 是单帧载荷的默认上限。
const DefaultMaxFrameSize uint32 = 16 * 1024 * 1024

// 帧格式：4 字节大端长度 + Codec.Encode 的输出。

// StreamEncoder 把同一类型的多个值依次写成长度前缀帧。
type StreamEncoder struct {
	w            io.Writer
	codec        *Codec
	typeString   string
	maxFrameSize uint32
}

// NewStreamEncoder 创建写入 w 的编码器，maxFrameSize 为 0 时使用 DefaultMaxFrameSize。
func (c *Codec) NewStreamEncoder(w io.Writer, typeString string, maxFrameSize uint32) *StreamEncoder {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &StreamEncoder{w: w, codec: c, typeString: typeString, maxFrameSize: maxFrameSize}
}

// Encode 编码 value 并写出一帧。
func (e *StreamEncoder) Encode(value any) error {
	body, err := e.codec.Encode(value, e.typeString)
	if err != nil {
		return err
	}
	if uint64(len(body)) > uint64(e.maxFrameSize) {
		return errors.Newf("frame size %d exceeds max %d", len(body), e.maxFrameSize)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := e.w.Write(header[:]); err != nil {
		return errors.Wrap(err, "write frame header")
	}
	if _, err := e.w.Write(body); err != nil {
		return errors.Wrap(err, "write frame body")
	}
	return nil
}

// StreamDecoder 从长度前缀帧中依次读出值。
type StreamDecoder struct {
	r            *bufio.Reader
	codec        *Codec
	typeString   string
	maxFrameSize uint32
	buf          []byte
}

// NewStreamDecoder 创建从 r 读取的解码器，maxFrameSize 为 0 时使用 DefaultMaxFrameSize。
func (c *Codec) NewStreamDecoder(r io.Reader, typeString string, maxFrameSize uint32) *StreamDecoder {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &StreamDecoder{r: bufio.NewReader(r), codec: c, typeString: typeString, maxFrameSize: maxFrameSize}
}

// Decode 读出下一个值。流在帧边界处结束时返回 io.EOF，
// 在帧中间结束时返回 io.ErrUnexpectedEOF。
func (d *StreamDecoder) Decode() (any, error) {
	var header [4]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read frame header")
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > d.maxFrameSize {
		return nil, errors.Newf("frame size %d exceeds max %d", length, d.maxFrameSize)
	}
	if cap(d.buf) < int(length) {
		d.buf = make([]byte, length)
	}
	d.buf = d.buf[:length]
	if _, err := io.ReadFull(d.r, d.buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrap(err, "read frame body")
	}
	return d.codec.Decode(d.buf, d.typeString)
}
