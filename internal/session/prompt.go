package session

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mailsweep/mailsweep/internal/newsletter"
	"github.com/pkg/errors"
)

// ErrInvalidInput marks an unparseable menu response. Controllers treat it
// as "re-display and ask again", never as a failure.
var ErrInvalidInput = errors.New("invalid input")

// TerminalPrompter implements Prompter over a line-oriented reader and
// writer, normally stdin and stdout.
type TerminalPrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

func (p *TerminalPrompter) Decide(c newsletter.Candidate, position, total int) (Decision, error) {
	fmt.Fprintf(p.out, "\n[%d/%d] %s\n", position, total, c.Sender)
	fmt.Fprintf(p.out, "    Subject: %s\n", c.Subject)
	for _, link := range c.AllLinks {
		fmt.Fprintf(p.out, "    Link: %s\n", link)
	}
	fmt.Fprint(p.out, "Unsubscribe? [y] yes / [d] delete only / [n] skip / [exit] quit: ")

	line, err := p.readLine()
	if err != nil {
		return DecisionExit, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y":
		return DecisionUnsubscribe, nil
	case "d":
		return DecisionDelete, nil
	case "exit":
		return DecisionExit, nil
	default:
		return DecisionSkip, nil
	}
}

func (p *TerminalPrompter) Menu(offset int, candidates []newsletter.Candidate) (MenuChoice, error) {
	fmt.Fprintf(p.out, "\nNewsletters in current batch (offset %d):\n", offset)
	if len(candidates) == 0 {
		fmt.Fprintln(p.out, "  (none)")
	}
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d. %s - %s\n", i+1, c.Sender, c.Subject)
	}
	fmt.Fprintln(p.out, "1) Unsubscribe from selected")
	fmt.Fprintln(p.out, "2) Unsubscribe from all")
	fmt.Fprintln(p.out, "3) Delete selected")
	fmt.Fprintln(p.out, "4) Next batch")
	fmt.Fprintln(p.out, "5) Restart scan")
	fmt.Fprintln(p.out, "6) Exit")
	fmt.Fprint(p.out, "Choice: ")

	line, err := p.readLine()
	if err != nil {
		return MenuExit, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < int(MenuSelect) || n > int(MenuExit) {
		return 0, ErrInvalidInput
	}
	return MenuChoice(n), nil
}

func (p *TerminalPrompter) Selection() (string, error) {
	fmt.Fprint(p.out, "Indices (comma-separated, or restart/exit): ")
	return p.readLine()
}

func (p *TerminalPrompter) Notify(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *TerminalPrompter) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}
