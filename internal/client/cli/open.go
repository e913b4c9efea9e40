package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/shlink/internal/client/models"
	"github.com/dmitrijs2005/shlink/internal/client/viewer"
	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/dmitrijs2005/shlink/internal/filex"
	"github.com/dmitrijs2005/shlink/internal/shlink"
	"github.com/google/uuid"
)

// Open resolves link, prompting for a passcode as often as the server keeps
// asking for one. Decrypted files are saved to the output directory.
func (a *App) Open(ctx context.Context, link string) error {
	r := a.newResolver()

	snap, err := r.Open(link)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", describe(err))
		return err
	}

	for {
		switch snap.State {
		case viewer.StatePasscodeRequired:
			if snap.Err != nil {
				fmt.Fprintln(a.out, "Wrong passcode.")
			}
			pc, err := GetPasscode(a.reader, a.out, snap.RemainingAttempts)
			if err != nil || pc == "" {
				fmt.Fprintln(a.out, "Cancelled.")
				return a.finish(ctx, snap, viewer.ErrPasscodeMissing)
			}
			snap, _ = r.Resolve(ctx, pc)

		case viewer.StateLoading:
			snap, _ = r.Resolve(ctx, "")

		default:
			return a.finish(ctx, snap, snap.Err)
		}
	}
}

// finish reports the outcome, saves files on success and records the
// attempt in the history.
func (a *App) finish(ctx context.Context, snap viewer.Snapshot, outcome error) error {
	id := uuid.NewString()

	if outcome == nil && snap.State == viewer.StateSuccess {
		outcome = a.save(id, snap)
	}
	if outcome != nil {
		fmt.Fprintln(a.out, "Error:", describe(outcome))
	}

	a.record(ctx, id, snap, outcome)
	return outcome
}

func (a *App) save(id string, snap viewer.Snapshot) error {
	if snap.Payload != nil && snap.Payload.Label != "" {
		fmt.Fprintf(a.out, "%s\n", snap.Payload.Label)
	}
	if len(snap.Files) == 0 {
		fmt.Fprintln(a.out, "The link holds no files.")
	}

	if len(snap.Files) > 0 {
		dir, err := filex.EnsureSubdDir(a.config.OutputDir)
		if err != nil {
			return err
		}
		for i, f := range snap.Files {
			path, err := filex.WriteFile(dir, fmt.Sprintf("%s-%02d", id[:8], i+1), f.ContentType, f.Data)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  [%d] %s, %d bytes -> %s\n", i+1, contentTypeOrUnknown(f.ContentType), len(f.Data), path)
		}
	}

	if snap.Status == shlink.StatusCanChange {
		fmt.Fprintln(a.out, "This link may receive new content; open it again later for updates.")
	}
	return nil
}

func (a *App) record(ctx context.Context, id string, snap viewer.Snapshot, outcome error) {
	e := &models.HistoryEntry{
		ID:        id,
		Status:    snap.Status,
		FileCount: len(snap.Files),
		Success:   outcome == nil,
		OpenedAt:  a.now(),
	}
	if snap.Payload != nil {
		e.Label = snap.Payload.Label
		e.ManifestURL = snap.Payload.URL
		e.Flags = snap.Payload.Flag
	}
	if outcome != nil {
		e.Error = outcome.Error()
	}

	if err := a.history.Add(ctx, e); err != nil {
		a.logger.Warn(ctx, "failed to record history", "error", err)
	}
}

func contentTypeOrUnknown(ct string) string {
	if ct == "" {
		return "unknown type"
	}
	return ct
}

// describe turns a resolution error into a message for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrFormat):
		return "the link is malformed"
	case errors.Is(err, common.ErrExpired):
		return "the link has expired"
	case errors.Is(err, common.ErrLockedOut):
		return "too many wrong passcodes, the link is locked"
	case errors.Is(err, common.ErrNoLongerValid):
		return "the link has been revoked, discard anything obtained through it"
	case errors.Is(err, common.ErrorNotFound):
		return "the link is unknown or was already used"
	case errors.Is(err, common.ErrAuthentication):
		return "a file failed its integrity check"
	case errors.Is(err, common.ErrNetwork):
		return "network problem: " + err.Error()
	case errors.Is(err, viewer.ErrPasscodeMissing):
		return "no passcode given"
	}
	return err.Error()
}
