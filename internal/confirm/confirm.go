// Package confirm gates submission behind an operator yes/no answer.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer answers whether to proceed with a submission.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Func adapts a function to Confirmer
type Func func(question string) (bool, error)

// Confirm calls f
func (f Func) Confirm(question string) (bool, error) {
	return f(question)
}

// Always returns a Confirmer that answers yes without asking.
func Always(answer bool) Confirmer {
	return Func(func(string) (bool, error) { return answer, nil })
}

// Prompt asks on Out and reads the answer from In. Anything but y/yes is no.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt creates a terminal prompt
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Confirm prints "question [y/N]: " and waits for a line.
// End of input counts as no.
func (p *Prompt) Confirm(question string) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", question); err != nil {
		return false, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
