package adapters

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	xzMagic   = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// decompress sniffs the stream header and returns a reader over the
// uncompressed bytes. Unknown headers are passed through as plain tar.
// Decoding is synchronous so callers may drain r once the reader is done.
func decompress(r io.Reader) (io.Reader, func(), error) {
	buffered := bufio.NewReader(r)
	head, _ := buffered.Peek(len(xzMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		reader, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to open gzip stream").
				WithCause(err)
		}
		return reader, func() { _ = reader.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		reader, err := zstd.NewReader(buffered, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to open zstd stream").
				WithCause(err)
		}
		return reader, reader.Close, nil
	case bytes.HasPrefix(head, xzMagic):
		reader, err := xz.NewReader(buffered)
		if err != nil {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to open xz stream").
				WithCause(err)
		}
		return reader, func() {}, nil
	default:
		return buffered, func() {}, nil
	}
}
