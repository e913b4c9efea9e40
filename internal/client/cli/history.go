package cli

import (
	"context"
	"fmt"
	"time"
)

const historyLimit = 20

// History prints the most recently opened links.
func (a *App) History(ctx context.Context) error {
	entries, err := a.history.List(ctx, historyLimit)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No links opened yet.")
		return nil
	}

	for _, e := range entries {
		outcome := "ok"
		if !e.Success {
			outcome = "failed: " + e.Error
		} else if e.Status != "" {
			outcome = fmt.Sprintf("ok, %s, %d file(s)", e.Status, e.FileCount)
		}
		label := e.Label
		if label == "" {
			label = e.ManifestURL
		}
		fmt.Fprintf(a.out, "%s  %-40s  %s\n", formatTime(e.OpenedAt), label, outcome)
	}
	return nil
}

func (a *App) ClearHistory(ctx context.Context) error {
	if err := a.history.Clear(ctx); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	fmt.Fprintln(a.out, "History cleared.")
	return nil
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
