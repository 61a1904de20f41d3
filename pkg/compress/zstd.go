// Package compress wraps zstd with shared, concurrency-safe coders.
package compress

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// MaxDecodedSize bounds the output of Decode.
const MaxDecodedSize = 64 << 20

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error

	decOnce sync.Once
	dec     *zstd.Decoder
	decErr  error
)

func encoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		enc, encErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return enc, encErr
}

func decoder() (*zstd.Decoder, error) {
	decOnce.Do(func() {
		dec, decErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxDecodedSize),
		)
	})
	return dec, decErr
}

// Encode compresses data using zstd.
func Encode(data []byte) ([]byte, error) {
	e, err := encoder()
	if err != nil {
		return nil, err
	}
	return e.EncodeAll(data, nil), nil
}

// Decode decompresses zstd-compressed data. Output larger than
// MaxDecodedSize fails with zstd.ErrDecoderSizeExceeded.
func Decode(data []byte) ([]byte, error) {
	d, err := decoder()
	if err != nil {
		return nil, err
	}
	return d.DecodeAll(data, nil)
}
