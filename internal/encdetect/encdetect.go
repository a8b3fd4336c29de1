// Package encdetect sniffs the text encoding of a padrón extract before
// parsing begins. The published extracts alternate between UTF-8 and legacy
// 8-bit code pages depending on the export tooling, so the loader cannot
// assume either.
package encdetect

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// SampleLines is how many lines are read per candidate when sniffing.
const SampleLines = 5

// Encoding is a named text encoding usable for decoding the source file.
type Encoding struct {
	Name string
	enc  encoding.Encoding
}

// Candidates is the detection priority order. Latin-1 decodes every byte
// sequence, so it doubles as the terminal candidate.
var Candidates = []Encoding{
	{Name: "utf-8", enc: unicode.UTF8},
	{Name: "windows-1252", enc: charmap.Windows1252},
	{Name: "latin-1", enc: charmap.ISO8859_1},
}

// Default is the fallback when no candidate passes the sniff.
var Default = Encoding{Name: "latin-1", enc: charmap.ISO8859_1}

// NewReader wraps r so its bytes are decoded from this encoding into UTF-8.
// Undecodable byte sequences become U+FFFD; decoding never fails a line.
func (e Encoding) NewReader(r io.Reader) io.Reader {
	return e.enc.NewDecoder().Reader(r)
}

// openSource opens path for reading, transparently decompressing .gz files.
// The returned closer closes both the gzip reader and the file.
func openSource(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return f, f.Close, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	closer := func() error {
		gz.Close()
		return f.Close()
	}
	return gz, closer, nil
}

// OpenDecoded opens path (transparently decompressing .gz) and returns a
// reader that yields UTF-8 text decoded with enc.
func OpenDecoded(path string, enc Encoding) (io.Reader, func() error, error) {
	r, closeFn, err := openSource(path)
	if err != nil {
		return nil, nil, err
	}
	return enc.NewReader(r), closeFn, nil
}

// DetectFile sniffs the encoding of the file at path, using the delimiter
// the padrón format is expected to carry. It samples up to SampleLines lines
// per candidate and accepts the first candidate where at least one sampled
// line contains the delimiter and no byte failed to decode. It never fails:
// unreadable files and exhausted candidates fall back to Default.
func DetectFile(path string, delimiter string) Encoding {
	for _, cand := range Candidates {
		r, closeFn, err := openSource(path)
		if err != nil {
			return Default
		}
		ok := sniff(cand.NewReader(r), delimiter)
		closeFn()
		if ok {
			return cand
		}
	}
	return Default
}

// sniff reads up to SampleLines decoded lines and reports whether the sample
// looks like delimiter-separated text decoded without replacement.
func sniff(r io.Reader, delimiter string) bool {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sawDelimiter := false
	for i := 0; i < SampleLines && scanner.Scan(); i++ {
		line := scanner.Text()
		if strings.ContainsRune(line, '�') {
			return false
		}
		if strings.Contains(line, delimiter) {
			sawDelimiter = true
		}
	}
	return sawDelimiter
}
