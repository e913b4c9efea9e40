package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/shlink/internal/client/client"
	"github.com/dmitrijs2005/shlink/internal/client/config"
	"github.com/dmitrijs2005/shlink/internal/client/repositories/history"
	"github.com/dmitrijs2005/shlink/internal/client/viewer"
	"github.com/dmitrijs2005/shlink/internal/logging"

	_ "modernc.org/sqlite"
)

// resolver is the part of viewer.Resolver the App drives.
type resolver interface {
	Open(link string) (viewer.Snapshot, error)
	Resolve(ctx context.Context, passcode string) (viewer.Snapshot, error)
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	history     history.Repository
	closer      io.Closer
	newResolver func() resolver
	reader      *bufio.Reader
	out         io.Writer
	now         func() time.Time
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, "text", c.LogLevel)

	repos, err := client.InitDatabase(ctx, c.HistoryDB)
	if err != nil {
		logger.Error(ctx, "error initializing history database", "path", c.HistoryDB, "error", err)
		return nil, err
	}

	hc := client.NewHTTPClient(nil, client.Options{
		Timeout:       c.RequestTimeout,
		RetryAttempts: c.RetryAttempts,
		RetryBase:     c.RetryBaseDelay,
	})

	return &App{
		config:  c,
		logger:  logger,
		history: repos.History,
		closer:  repos.DB,
		newResolver: func() resolver {
			return viewer.NewResolver(hc, c.Recipient, c.EmbeddedLengthMax)
		},
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		now:    time.Now,
	}, nil
}

// Run starts the REPL and blocks until the user leaves it.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	printlnFn("SMART Health Link viewer (type 'help' for commands)")
	runREPL(ctx, a, a.reader)
}

// RunOnce opens a single link and returns its outcome.
func (a *App) RunOnce(ctx context.Context, link string) error {
	defer a.Close()
	return a.Open(ctx, link)
}

func (a *App) Close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}
