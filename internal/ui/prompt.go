package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Prompter asks line-based questions on a terminal. When not interactive no input
// is read: Confirm answers AssumeYes, Select cancels and TextInput accepts the
// default.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	assumeYes   bool
}

// NewPrompter returns a Prompter reading answers from in and writing questions to
// out.
func NewPrompter(in io.Reader, out io.Writer, interactive, assumeYes bool) *Prompter {
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
		assumeYes:   assumeYes,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one line, giving up when ctx is done. A final line without a
// newline is returned; io.EOF is only reported when nothing was read.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- lineResult{strings.TrimSpace(line), err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

// Confirm asks a yes/no question defaulting to no. End of input counts as no.
func (p *Prompter) Confirm(ctx context.Context, msg string) (bool, error) {
	if !p.interactive {
		return p.assumeYes, nil
	}
	fmt.Fprintf(p.out, "%s %s ", msg, T("prompt.yes-no"))
	line, err := p.readLine(ctx)
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Select shows a numbered list and returns the index chosen. A blank answer or end
// of input cancels, reported by ok being false. Invalid answers are asked again.
func (p *Prompter) Select(ctx context.Context, msg string, items []string) (int, bool, error) {
	if !p.interactive || len(items) == 0 {
		return -1, false, nil
	}
	fmt.Fprintln(p.out, msg)
	for i, item := range items {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, item)
	}
	for {
		fmt.Fprintf(p.out, "%s ", T("prompt.choose", len(items)))
		line, err := p.readLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return -1, false, nil
		}
		if err != nil {
			return -1, false, err
		}
		if line == "" {
			return -1, false, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(items) {
			return n - 1, true, nil
		}
	}
}

// TextInput asks for a line of text suggesting def, which is used when the answer
// is blank. End of input cancels.
func (p *Prompter) TextInput(ctx context.Context, msg, def string) (string, bool, error) {
	if !p.interactive {
		return def, true, nil
	}
	if def != "" {
		fmt.Fprintf(p.out, "%s (%s): ", msg, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", msg)
	}
	line, err := p.readLine(ctx)
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if line == "" {
		return def, true, nil
	}
	return line, true, nil
}
