package output

import (
	"fmt"
	"io"
	"os"
)

// Output defines where generated lines go.
type Output interface {
	WriteLines(lines ...string) error
}

// ConsoleOutput writes lines to stdout.
type ConsoleOutput struct {
	w io.Writer
}

func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{w: os.Stdout}
}

// NewWriterOutput writes lines to w instead of stdout.
func NewWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

func (c *ConsoleOutput) WriteLines(lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(c.w, line); err != nil {
			return err
		}
	}
	return nil
}
