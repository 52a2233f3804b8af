package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// PromptConfirmer asks on a terminal: the message is written to Output and
// a single line is read from Input. Only "y" or "yes" confirm. Cancelling ctx
// while the read is pending returns ctx.Err(); the read itself keeps running
// until Input yields a line or fails, and its result is discarded.
type PromptConfirmer struct {
	Input  io.Reader
	Output io.Writer
}

// Confirm implements Confirmer.
func (confirmer PromptConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprintf(confirmer.Output, "%s [y/N]: ", message); err != nil {
		return false, fmt.Errorf("browser.confirm.write: %w", err)
	}
	answers := make(chan promptAnswer, 1)
	go func() {
		line, readErr := bufio.NewReader(confirmer.Input).ReadString('\n')
		answers <- promptAnswer{line: line, err: readErr}
	}()
	var answer promptAnswer
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case answer = <-answers:
	}
	if answer.err != nil && answer.err != io.EOF {
		return false, fmt.Errorf("browser.confirm.read: %w", answer.err)
	}
	line := answer.line
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type promptAnswer struct {
	line string
	err  error
}

// AlwaysConfirm accepts every prompt; used for non-interactive sign-out.
type AlwaysConfirm struct{}

// Confirm implements Confirmer.
func (AlwaysConfirm) Confirm(ctx context.Context, message string) (bool, error) {
	return true, nil
}
