package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// menuSize is the number of alternatives visible at once in a selection menu.
const menuSize = 10

// PromptUI is the terminal Prompter backed by promptui.
type PromptUI struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewPromptUI returns a PromptUI bound to the process terminal.
func NewPromptUI() *PromptUI {
	return &PromptUI{stdin: os.Stdin, stdout: os.Stdout}
}

// NewPromptUIWithIO returns a PromptUI reading stdin and writing stdout; nil
// falls back to the process streams.
func NewPromptUIWithIO(stdin io.Reader, stdout io.Writer) *PromptUI {
	pu := NewPromptUI()
	if stdin != nil {
		pu.stdin = toReadCloser(stdin)
	}
	if stdout != nil {
		pu.stdout = toWriteCloser(stdout)
	}
	return pu
}

// Select shows items with the cursor on defaultValue. Typing "/" filters the
// list by substring, which helps once many ~/.aws.<name> directories exist.
func (p *PromptUI) Select(label string, items []string, defaultValue string) (int, string, error) {
	cursor := 0
	for i, item := range items {
		if item == defaultValue {
			cursor = i
			break
		}
	}

	sel := promptui.Select{
		Label:     label,
		Items:     items,
		Size:      menuSize,
		HideHelp:  true,
		CursorPos: cursor,
		Searcher:  substringSearcher(items),
		Stdin:     p.stdin,
		Stdout:    p.stdout,
	}
	idx, value, err := sel.Run()
	if err != nil {
		return idx, value, fmt.Errorf("%w: %v", ErrPromptCancelled, err)
	}
	return idx, value, nil
}

func (p *PromptUI) Confirm(label string, defaultYes bool) (bool, error) {
	def := "N"
	if defaultYes {
		def = "Y"
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   def,
		Stdin:     p.stdin,
		Stdout:    p.stdout,
	}
	result, err := prompt.Run()
	return confirmResult(result, err, defaultYes)
}

// confirmResult interprets a confirm prompt. promptui reports any answer
// other than "y" as ErrAbort, which is a "no" rather than a cancellation.
func confirmResult(result string, err error, defaultYes bool) (bool, error) {
	switch {
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: %v", ErrPromptCancelled, err)
	}
	return strings.EqualFold(result, "y") || (result == "" && defaultYes), nil
}

func substringSearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		needle := strings.ToLower(strings.TrimSpace(input))
		return strings.Contains(strings.ToLower(items[index]), needle)
	}
}

func toReadCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

func toWriteCloser(w io.Writer) io.WriteCloser {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return nopWriteCloser{Writer: w}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
