package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StreamKind indicates which child stream a pump reads.
type StreamKind string

const (
	// StreamStdout forwards every read as it arrives.
	StreamStdout StreamKind = "stdout"
	// StreamStderr forwards once a read ends in a newline.
	StreamStderr StreamKind = "stderr"
)

const pumpChunkSize = 1024

// Pump reads one child stream and forwards decoded, right-trimmed text to a sink.
// The sink runs on the pump goroutine and must only hand the text off.
type Pump struct {
	kind  StreamKind
	r     io.Reader
	dec   *encoding.Decoder
	sink  func(string)
	carry []byte
}

// NewPump returns a pump decoding r with enc (UTF-8 when nil).
func NewPump(kind StreamKind, r io.Reader, enc encoding.Encoding, sink func(string)) *Pump {
	if enc == nil {
		enc = textunicode.UTF8
	}
	return &Pump{kind: kind, r: r, dec: enc.NewDecoder(), sink: sink}
}

// Run pumps until ctx is cancelled or the stream ends. ctx is checked before
// each read; an in-flight read is never aborted.
func (p *Pump) Run(ctx context.Context) {
	buf := make([]byte, pumpChunkSize)
	var acc strings.Builder
	for ctx.Err() == nil {
		n, err := p.r.Read(buf)
		if n > 0 {
			chunk := p.decode(buf[:n], false)
			if chunk != "" {
				acc.WriteString(chunk)
				if p.kind != StreamStderr || strings.HasSuffix(chunk, "\n") {
					p.flush(&acc)
				}
			}
		}
		if err != nil {
			break
		}
	}
	if ctx.Err() != nil {
		return
	}
	if len(p.carry) > 0 {
		acc.WriteString(p.decode(nil, true))
	}
	p.flush(&acc)
}

func (p *Pump) flush(acc *strings.Builder) {
	text := strings.TrimRightFunc(acc.String(), unicode.IsSpace)
	acc.Reset()
	if text == "" || p.sink == nil {
		return
	}
	p.sink(text)
}

// decode converts chunk to UTF-8, holding back an incomplete trailing sequence
// until the next read.
func (p *Pump) decode(chunk []byte, atEOF bool) string {
	src := append(p.carry, chunk...)
	p.carry = nil
	dst := make([]byte, 4*len(src)+utf8.UTFMax)
	var out strings.Builder
	for len(src) > 0 {
		nDst, nSrc, err := p.dec.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]
		switch {
		case err == nil:
			return out.String()
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		case errors.Is(err, transform.ErrShortSrc):
			p.carry = append([]byte(nil), src...)
			return out.String()
		default:
			return out.String()
		}
	}
	return out.String()
}
