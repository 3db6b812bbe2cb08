package common

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// \ide marker declares source encoding, Paratext writes code page numbers
// there as well as names.
var reDeclaredEncoding = regexp.MustCompile(`(?m)^\\ide\s+([^\s\\]+)`)

// ReadSource reads book source file converting it to UTF-8. UTF-16 BOM is
// honored, valid UTF-8 is taken as is. Anything else is decoded using
// encoding declared by \ide marker or, when there is none, guessed from
// content.
func ReadSource(fname string) (string, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}

	if bytes.HasPrefix(data, []byte{0xfe, 0xff}) || bytes.HasPrefix(data, []byte{0xff, 0xfe}) {
		enc, _, _ := charset.DetermineEncoding(data, "text/plain")
		if data, err = enc.NewDecoder().Bytes(data); err != nil {
			return "", fmt.Errorf("unable to decode %s: %w", fname, err)
		}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}

	if m := reDeclaredEncoding.FindSubmatch(data); m != nil {
		if text, err := decodeLabel(encodingLabel(string(m[1])), data); err == nil {
			return text, nil
		}
	}

	enc, name, _ := charset.DetermineEncoding(data, "text/plain")
	res, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("unable to decode %s as %s: %w", fname, name, err)
	}
	return strings.TrimPrefix(string(res), "\ufeff"), nil
}

// encodingLabel turns code page number into windows encoding label.
func encodingLabel(declared string) string {
	if strings.Trim(declared, "0123456789") == "" {
		return "windows-" + declared
	}
	return declared
}

func decodeLabel(label string, data []byte) (string, error) {
	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	res, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(res), nil
}
