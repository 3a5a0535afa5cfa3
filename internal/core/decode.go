package core

// decode.go turns a raw uploaded byte stream into text by trying a
// prioritized list of encodings, most specific first. The first candidate
// that decodes every byte cleanly wins; its name is reported so callers can
// tell how the file was interpreted.

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type encodingCandidate struct {
	name   string
	decode func([]byte) (string, bool)
}

// candidateEncodings is the fixed trial order. utf-8-sig precedes plain
// utf-8 so BOM-carrying files report the more specific name.
var candidateEncodings = []encodingCandidate{
	{"utf-8-sig", decodeUTF8Sig},
	{"utf-8", decodeUTF8},
	{"euc-kr", decodeEUCKR},
}

// Decode converts raw bytes to text using the first candidate encoding that
// decodes without error. Pure function over the input bytes.
func Decode(raw []byte) (text, encoding string, err error) {
	for _, c := range candidateEncodings {
		if s, ok := c.decode(raw); ok {
			return s, c.name, nil
		}
	}
	attempted := make([]string, len(candidateEncodings))
	for i, c := range candidateEncodings {
		attempted[i] = c.name
	}
	return "", "", &DecodeError{Attempted: attempted}
}

func decodeUTF8Sig(raw []byte) (string, bool) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// decodeEUCKR decodes via x/text's EUC-KR, which implements the WHATWG
// windows-949 superset, so cp949 extension characters decode as well.
// The x/text decoders substitute U+FFFD for undecodable bytes instead of
// failing, so a replacement rune in the output means the candidate did
// not fit. U+FFFD cannot be produced by any valid EUC-KR sequence.
func decodeEUCKR(raw []byte) (string, bool) {
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
