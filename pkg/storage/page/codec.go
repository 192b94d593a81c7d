package page

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// ImageCodec compresses the before-image snapshots kept by pages. Most pages
// are sparsely filled, so their zero runs compress well.
type ImageCodec interface {
	Name() string
	Encode(src []byte) ([]byte, error)
	Decode(src []byte) ([]byte, error)
}

// DefaultCodec is used when a file is opened without an explicit codec.
var DefaultCodec ImageCodec = SnappyCodec{}

// CodecByName maps a configuration name to a codec.
func CodecByName(name string) (ImageCodec, error) {
	switch name {
	case "", "snappy":
		return SnappyCodec{}, nil
	case "lz4":
		return LZ4Codec{}, nil
	case "none":
		return RawCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown image codec %q", name)
	}
}

type SnappyCodec struct{}

func (SnappyCodec) Name() string { return "snappy" }

func (SnappyCodec) Encode(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (SnappyCodec) Decode(src []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "snappy decode")
	}
	return out, nil
}

// LZ4Codec uses the lz4 block format behind a small header: one flag byte
// (0 stored, 1 compressed) followed by the uvarint original length.
type LZ4Codec struct{}

func (LZ4Codec) Name() string { return "lz4" }

func (LZ4Codec) Encode(src []byte) ([]byte, error) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	hn := 1 + binary.PutUvarint(header[1:], uint64(len(src)))

	dst := make([]byte, hn+lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst[hn:], nil)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 encode")
	}

	if n == 0 || n >= len(src) {
		header[0] = 0
		out := make([]byte, 0, hn+len(src))
		return append(append(out, header[:hn]...), src...), nil
	}

	header[0] = 1
	copy(dst, header[:hn])
	return dst[:hn+n], nil
}

func (LZ4Codec) Decode(src []byte) ([]byte, error) {
	if len(src) < 2 {
		return nil, errors.New("lz4 image too short")
	}

	size, k := binary.Uvarint(src[1:])
	if k <= 0 {
		return nil, errors.New("lz4 image has a bad length header")
	}
	body := src[1+k:]

	if src[0] == 0 {
		if uint64(len(body)) != size {
			return nil, errors.Errorf("lz4 stored image is %d bytes, header says %d", len(body), size)
		}
		return append([]byte(nil), body...), nil
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 decode")
	}
	if uint64(n) != size {
		return nil, errors.Errorf("lz4 image decoded to %d bytes, header says %d", n, size)
	}
	return out, nil
}

// RawCodec keeps a plain copy.
type RawCodec struct{}

func (RawCodec) Name() string { return "none" }

func (RawCodec) Encode(src []byte) ([]byte, error) {
	return append([]byte(nil), src...), nil
}

func (RawCodec) Decode(src []byte) ([]byte, error) {
	return append([]byte(nil), src...), nil
}
