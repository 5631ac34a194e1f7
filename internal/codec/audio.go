// Package codec converts recorded audio between raw bytes and the base64 form
// kept inside persisted echoes.
package codec

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEncodeFailed wraps every failure to turn a recording into its string form.
var ErrEncodeFailed = errors.New("codec: encode failed")

// DefaultMimeType is assumed when a recording arrives without one.
const DefaultMimeType = "audio/webm"

// Blob is a decoded recording.
type Blob struct {
	Data     []byte
	MimeType string
}

// Reader returns a reader over the blob bytes.
func (b Blob) Reader() io.Reader { return bytes.NewReader(b.Data) }

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Encode reads the whole recording from r and returns it base64 encoded. A
// failing read or a cancelled ctx fails the encode; no partial string is
// returned.
func Encode(ctx context.Context, r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: no audio", ErrEncodeFailed)
	}
	var buf strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, ctxReader{ctx: ctx, r: r}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return buf.String(), nil
}

// Decode turns an encoded recording back into bytes. It does not validate:
// malformed input yields whatever decoded cleanly before the first bad
// character. Use Validate first when the input is untrusted.
func Decode(encoded, mimeType string) Blob {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	data, _ := base64.StdEncoding.DecodeString(stripDataURL(encoded))
	return Blob{Data: data, MimeType: mimeType}
}

// Validate reports whether encoded is well-formed base64.
func Validate(encoded string) error {
	if _, err := base64.StdEncoding.DecodeString(stripDataURL(encoded)); err != nil {
		return fmt.Errorf("codec: invalid payload: %w", err)
	}
	return nil
}

// stripDataURL drops a "data:<mime>;base64," header written by older clients.
func stripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ";base64,"); idx != -1 {
		return s[idx+len(";base64,"):]
	}
	return s
}
