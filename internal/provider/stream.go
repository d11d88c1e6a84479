package provider

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"iter"
)

// maxLineSize bounds a single NDJSON line. Longer lines are discarded.
const maxLineSize = 1 << 20

// Fragment is one line of an Ollama /api/generate stream.
type Fragment struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// FragmentReader turns a newline-delimited JSON body into a lazy sequence of
// fragments.
type FragmentReader struct {
	r   *bufio.Reader
	err error
}

func NewFragmentReader(r io.Reader) *FragmentReader {
	return &FragmentReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// All yields every well-formed fragment in order. Blank, malformed and
// oversized lines are skipped. The sequence ends at end of input or at the
// first fragment reporting done, which is not yielded.
func (f *FragmentReader) All() iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		for {
			line, err := f.readLine()
			if line = bytes.TrimSpace(line); len(line) > 0 {
				var frag Fragment
				if json.Unmarshal(line, &frag) == nil {
					if frag.Done {
						return
					}
					if !yield(frag) {
						return
					}
				}
			}
			if err != nil {
				if err != io.EOF {
					f.err = err
				}
				return
			}
		}
	}
}

// readLine returns the next line without its size limit being an error: a
// line longer than maxLineSize is consumed and returned empty.
func (f *FragmentReader) readLine() ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := f.r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, err
	}
}

// Err returns the read error that ended the sequence, if any.
func (f *FragmentReader) Err() error { return f.err }

// Fragments is shorthand for NewFragmentReader(r).All() when read errors do
// not matter.
func Fragments(r io.Reader) iter.Seq[Fragment] {
	return NewFragmentReader(r).All()
}
