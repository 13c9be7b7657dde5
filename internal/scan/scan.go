// Package scan finds handler methods in emulator source by looking at line
// prefixes only. A handler starts on a line beginning with "  op" and ends on a
// line that is exactly "  }". There is no grammar behind this: nested blocks
// that close at the same indentation end the handler early, and a handler
// still open at the end of the input is dropped.
package scan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	handlerPrefix = "  op"
	handlerEnd    = "  }\n"
)

// group 1 keeps the op marker, group 2 drops it
var handlerNameRe = regexp.MustCompile(`^  (op([^(]*))\(`)

// Handler receives every complete handler in source order.
type Handler interface {
	Handle(name, body string) error
}

type HandlerFunc func(name, body string) error

func (f HandlerFunc) Handle(name, body string) error {
	return f(name, body)
}

type Option func(*scanner)

// WithKeepPrefix keeps the op marker in captured names: "opAdc" instead of "Adc".
func WithKeepPrefix(keep bool) Option {
	return func(s *scanner) {
		s.keepPrefix = keep
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *scanner) {
		s.log = log
	}
}

type scanner struct {
	keepPrefix bool
	log        *logrus.Entry

	// name is non-empty exactly while a handler is open
	name  string
	body  strings.Builder
	lines int
}

func newScanner(opts ...Option) *scanner {
	s := &scanner{
		log: logrus.WithField("component", "scan"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanFile scans the file at path. It fails only when the file cannot be
// read or h returns an error.
func ScanFile(path string, h Handler, opts ...Option) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("couldn't open the file: %w", err)
	}
	defer file.Close()

	return Scan(file, h, opts...)
}

// Scan reads r line by line and calls h once per handler, as soon as its
// closing line is seen.
func Scan(r io.Reader, h Handler, opts ...Option) error {
	s := newScanner(opts...)

	br := bufio.NewReader(r)
	for lineNum := 1; ; lineNum++ {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if herr := s.line(lineNum, normalizeEOL(line), h); herr != nil {
				return herr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("couldn't read line %d: %w", lineNum, err)
		}
	}

	if s.name != "" {
		s.log.WithFields(logrus.Fields{
			"name":  s.name,
			"lines": s.lines,
		}).Debug("unterminated handler discarded")
	}
	return nil
}

func (s *scanner) line(lineNum int, line string, h Handler) error {
	if s.name == "" {
		if strings.HasPrefix(line, handlerPrefix) {
			s.open(lineNum, line)
		}
		return nil
	}

	if line != handlerEnd {
		s.body.WriteString(line)
		s.lines++
		return nil
	}

	name, body := s.name, s.body.String()
	s.log.WithFields(logrus.Fields{
		"name":  name,
		"lines": s.lines,
		"line":  lineNum,
	}).Debug("handler closed")

	s.name = ""
	s.body.Reset()
	s.lines = 0

	return h.Handle(name, body)
}

func (s *scanner) open(lineNum int, line string) {
	m := handlerNameRe.FindStringSubmatch(line)
	if m == nil {
		s.log.WithField("line", lineNum).Debug("handler name not found")
		return
	}

	s.name = m[2]
	if s.keepPrefix {
		s.name = m[1]
	}
	if s.name == "" {
		s.log.WithField("line", lineNum).Debug("handler name is empty")
		return
	}

	s.log.WithFields(logrus.Fields{
		"name": s.name,
		"line": lineNum,
	}).Debug("handler opened")
}

// normalizeEOL turns a CRLF line ending into LF so the closing line
// comparison does not depend on the platform the source was saved on.
func normalizeEOL(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2] + "\n"
	}
	return line
}
