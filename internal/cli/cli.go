package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"paper-rag/internal/models"
)

// Answerer answers one question. rag.RAG implements it.
type Answerer interface {
	Answer(ctx context.Context, query string) (*models.Answer, error)
}

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	promptColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)
	sourceColor = color.New(color.FgYellow)
)

// IsExit reports whether line asks to leave the loop
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}

// Run reads questions from in until exit, quit, EOF or ctx is cancelled. A failed
// question is reported on out and the loop goes on.
func Run(ctx context.Context, in io.Reader, out io.Writer, answerer Answerer) error {
	titleColor.Fprintln(out, "--AI Research Assistant (RAG)")
	fmt.Fprintln(out, "Type 'exit' to quit")

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(in, done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		promptColor.Fprint(out, "\n Your question: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-readErr
			}
			line = l
		}

		if IsExit(line) {
			return nil
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}

		answer, err := answerer.Answer(ctx, query)
		if err != nil {
			log.Debug().Err(err).Str("query", query).Msg("Query failed")
			errorColor.Fprintf(out, "Error: %v\n", err)
			continue
		}
		PrintAnswer(out, answer)
	}
}

// readLines scans in on its own goroutine so a blocked read never holds up
// cancellation. lines is closed at EOF, after the scan error is sent on errc.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

// PrintAnswer writes the answer, the sources it was grounded on and a separator
func PrintAnswer(out io.Writer, answer *models.Answer) {
	titleColor.Fprint(out, "Answer:\n\n")
	fmt.Fprintln(out, answer.Answer)

	titleColor.Fprint(out, "Sources used:\n\n")
	for i, c := range answer.Context {
		sourceColor.Fprintf(out, "  SOURCE %d: %s (page %d)\n", i+1, c.Metadata.Source, c.Metadata.Page)
	}
	fmt.Fprintln(out, "\n"+models.SourceSeparator)
}
