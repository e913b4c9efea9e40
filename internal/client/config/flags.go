package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/shlink/internal/flagx"
)

// ValueFlags lists the flags that consume the following argument. The CLI
// uses it to tell the link argument apart from flag values.
var ValueFlags = []string{"-r", "-m", "-t", "-n", "-o", "-d", "-l", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   recipient name sent to the server
//	-m int      embeddedLengthMax in bytes
//	-t int      request timeout (in seconds)
//	-n int      retry attempts for file downloads
//	-o string   output directory for decrypted files
//	-d string   history database file
//	-l string   log level
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-m", "-t", "-n", "-o", "-d", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Recipient, "r", cfg.Recipient, "recipient name")
	fs.IntVar(&cfg.EmbeddedLengthMax, "m", cfg.EmbeddedLengthMax, "largest file to receive embedded (bytes)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&cfg.RetryAttempts, "n", cfg.RetryAttempts, "retry attempts for downloads")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "output directory")
	fs.StringVar(&cfg.HistoryDB, "d", cfg.HistoryDB, "history database file")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
