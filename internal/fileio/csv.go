package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV auto-detects the encoding and delimiter. Non-UTF-8 input is
// decoded as windows-1256 unless the detector rules it out in favour of
// windows-1251 or ISO-8859-6.
func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)

	peek, _ := br.Peek(2048)
	if bytes.HasPrefix(peek, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		peek = peek[len(utf8BOM):]
	}

	var dec io.Reader = br
	switch detectCharset(peek) {
	case "windows-1251":
		dec = transform.NewReader(br, charmap.Windows1251.NewDecoder())
	case "iso-8859-6":
		dec = transform.NewReader(br, charmap.ISO8859_6.NewDecoder())
	case "windows-1256":
		dec = transform.NewReader(br, charmap.Windows1256.NewDecoder())
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = sniffDelimiter(peek)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func detectCharset(peek []byte) string {
	if len(peek) == 0 || validUTF8Prefix(peek) {
		return "utf-8"
	}
	all, err := chardet.NewTextDetector().DetectAll(peek)
	if err != nil || len(all) == 0 {
		return "windows-1256"
	}
	for _, r := range all {
		if strings.EqualFold(r.Charset, "windows-1256") && r.Confidence > 0 {
			return "windows-1256"
		}
	}
	top := all[0]
	switch cs := strings.ToLower(top.Charset); cs {
	case "windows-1251", "iso-8859-6":
		if top.Confidence > 50 {
			return cs
		}
	}
	return "windows-1256"
}

// validUTF8Prefix tolerates a rune cut off by the peek window.
func validUTF8Prefix(b []byte) bool {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}

func sniffDelimiter(peek []byte) rune {
	line := peek
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, n := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if c := bytes.Count(line, []byte(string(d))); c > n {
			best, n = d, c
		}
	}
	return best
}
