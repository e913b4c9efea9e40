package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	links []string
}

func (f *fakeExec) Open(ctx context.Context, link string) error {
	f.calls = append(f.calls, "open")
	f.links = append(f.links, link)
	return nil
}

func (f *fakeExec) History(ctx context.Context) error {
	f.calls = append(f.calls, "history")
	return nil
}

func (f *fakeExec) ClearHistory(ctx context.Context) error {
	f.calls = append(f.calls, "clear")
	return nil
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &printed
}

func TestRunREPL_Commands(t *testing.T) {
	printed := silence(t)

	input := strings.Join([]string{
		"help",
		"",
		"open https://viewer.example.org/#shlink:/eyJ1cmwiOiJ4In0",
		"history",
		"h",
		"clear",
		"shlink:/eyJ1cmwiOiJ5In0",
		"foobar",
		"exit",
		"history",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"open", "history", "history", "clear", "open"}, exec.calls)
	assert.Equal(t, []string{
		"https://viewer.example.org/#shlink:/eyJ1cmwiOiJ4In0",
		"shlink:/eyJ1cmwiOiJ5In0",
	}, exec.links)
	assert.Contains(t, *printed, "Unknown command: foobar")
	assert.Contains(t, *printed, "Bye!")
}

func TestRunREPL_UsageAndEOF(t *testing.T) {
	printed := silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, bufio.NewReader(strings.NewReader("open\nopen a b")))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *printed, "Usage: open <link>")
}
