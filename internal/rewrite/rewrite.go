// Package rewrite turns the body of a hand-written CPU handler method into an
// Instruction class by plain text substitution. Nothing is parsed: patterns
// that do not match leave the text untouched, so every generated class has to
// be reviewed by hand before use.
package rewrite

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

//go:embed class.ts.tmpl
var classTemplateData string

var classTemplate = template.Must(template.New("class").Parse(classTemplateData))

// ClassName uppercases the first character of name and keeps the rest as is.
func ClassName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

type Rewriter struct {
	rules []Rule
	out   io.Writer
	log   *logrus.Entry
}

func New(out io.Writer) (*Rewriter, error) {
	rules, err := Rules()
	if err != nil {
		return nil, fmt.Errorf("couldn't load rules: %w", err)
	}
	return &Rewriter{
		rules: rules,
		out:   out,
		log:   logrus.WithField("component", "rewrite"),
	}, nil
}

func (rw *Rewriter) Rules() []Rule {
	return rw.rules
}

// Body applies the substitution table to body, in table order.
func (rw *Rewriter) Body(body string) string {
	for _, rule := range rw.rules {
		body = rule.Apply(body)
	}
	return body
}

// Handle prints one class generated from the handler name and body.
func (rw *Rewriter) Handle(name, body string) error {
	class := ClassName(name)

	var block strings.Builder
	err := classTemplate.Execute(&block, struct {
		Class string
		Body  string
	}{
		Class: class,
		Body:  rw.Body(body),
	})
	if err != nil {
		return fmt.Errorf("couldn't render class %s: %w", class, err)
	}
	block.WriteByte('\n')

	if _, err := io.WriteString(rw.out, block.String()); err != nil {
		return fmt.Errorf("couldn't write class %s: %w", class, err)
	}

	rw.log.WithFields(logrus.Fields{
		"name":  name,
		"class": class,
	}).Debug("class emitted")
	return nil
}
