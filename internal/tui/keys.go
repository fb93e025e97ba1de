// Package tui draws console views onto an ANSI terminal and decodes
// keystrokes from a raw-mode byte stream. It serves both the local
// terminal and SSH sessions.
package tui

import (
	"bufio"
	"io"
	"unicode"
	"unicode/utf8"

	"pkt.systems/gitconsole/core"
)

// ReadKeys decodes keystrokes from r until it fails, then closes out.
// A lone ESC with nothing buffered behind it is reported as KeyEscape.
func ReadKeys(r io.Reader, out chan<- core.Key) {
	defer close(out)
	br := bufio.NewReader(r)
	lastWasCR := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		switch b {
		case 0x1b:
			if br.Buffered() == 0 {
				out <- core.Key{Kind: core.KeyEscape}
				continue
			}
			readEscape(br, out)
		case '\r':
			out <- core.Key{Kind: core.KeyEnter}
			lastWasCR = true
		case '\n':
			out <- core.Key{Kind: core.KeyEnter}
		case 0x7f, 0x08:
			out <- core.Key{Kind: core.KeyBackspace}
		case 0x01:
			out <- core.Key{Kind: core.KeyCtrlA}
		case 0x03:
			out <- core.Key{Kind: core.KeyCtrlC}
		case 0x04:
			out <- core.Key{Kind: core.KeyCtrlD}
		case 0x05:
			out <- core.Key{Kind: core.KeyCtrlE}
		case 0x09:
			out <- core.Key{Kind: core.KeyTab}
		case 0x0b:
			out <- core.Key{Kind: core.KeyCtrlK}
		case 0x0c:
			out <- core.Key{Kind: core.KeyCtrlL}
		case 0x15:
			out <- core.Key{Kind: core.KeyCtrlU}
		case 0x17:
			out <- core.Key{Kind: core.KeyCtrlW}
		default:
			if b < utf8.RuneSelf {
				if b >= 0x20 {
					out <- core.Key{Kind: core.KeyRune, Rune: rune(b)}
				}
				continue
			}
			_ = br.UnreadByte()
			rn, _, err := br.ReadRune()
			if err != nil {
				return
			}
			out <- core.Key{Kind: core.KeyRune, Rune: rn}
		}
	}
}

func readEscape(br *bufio.Reader, out chan<- core.Key) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case '[':
		readCSI(br, out)
	case 'O':
		readSS3(br, out)
	case 0x1b:
		out <- core.Key{Kind: core.KeyEscape}
		out <- core.Key{Kind: core.KeyEscape}
	}
}

func readCSI(br *bufio.Reader, out chan<- core.Key) {
	seq := []byte{}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return
		}
	}
	switch string(seq) {
	case "A":
		out <- core.Key{Kind: core.KeyUp}
	case "B":
		out <- core.Key{Kind: core.KeyDown}
	case "C":
		out <- core.Key{Kind: core.KeyRight}
	case "D":
		out <- core.Key{Kind: core.KeyLeft}
	case "H", "1~", "7~":
		out <- core.Key{Kind: core.KeyHome}
	case "F", "4~", "8~":
		out <- core.Key{Kind: core.KeyEnd}
	case "5~":
		out <- core.Key{Kind: core.KeyPageUp}
	case "6~":
		out <- core.Key{Kind: core.KeyPageDown}
	case "3~":
		out <- core.Key{Kind: core.KeyDelete}
	}
}

func readSS3(br *bufio.Reader, out chan<- core.Key) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case 'A':
		out <- core.Key{Kind: core.KeyUp}
	case 'B':
		out <- core.Key{Kind: core.KeyDown}
	case 'C':
		out <- core.Key{Kind: core.KeyRight}
	case 'D':
		out <- core.Key{Kind: core.KeyLeft}
	case 'H':
		out <- core.Key{Kind: core.KeyHome}
	case 'F':
		out <- core.Key{Kind: core.KeyEnd}
	}
}
