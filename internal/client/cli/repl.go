package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	Open(ctx context.Context, link string) error
	History(ctx context.Context) error
	ClearHistory(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit". Command
// errors are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader) {
	for {
		printlnFn("shl> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: open <link>, history, clear, exit")

		case "open", "o":
			if len(args) != 1 {
				printlnFn("Usage: open <link>")
				continue
			}
			_ = a.Open(ctx, args[0])

		case "history", "h":
			_ = a.History(ctx)

		case "clear":
			_ = a.ClearHistory(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if strings.Contains(cmd, "shlink:/") {
				_ = a.Open(ctx, cmd)
				continue
			}
			printlnFn("Unknown command:", cmd)
		}
	}
}
