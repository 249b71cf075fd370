package engine

import (
	"context"
	"sort"
	"time"

	"doommaster/internal/directory"
)

// snapshotRequest is how a goroutine other than Run's own asks for a
// copy of the current verified server list. spec.md §5 requires that
// a multi-threaded implementation confine directory mutation (and, by
// extension, direct reads of its records) to one task and reach it
// only by message passing; this is that message.
type snapshotRequest struct {
	resp chan []directory.Metadata
}

// Snapshot returns the current verified server list, each entry's Age
// computed as of the moment the event-loop goroutine serviced the
// request. Safe to call from any goroutine, including concurrently
// with Run's own packet handling. Returns ctx's error if Run isn't
// draining snapshotCh (not yet started, or already stopped) before ctx
// is done.
func (e *Engine) Snapshot(ctx context.Context) ([]directory.Metadata, error) {
	req := snapshotRequest{resp: make(chan []directory.Metadata, 1)}

	select {
	case e.snapshotCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case md := <-req.resp:
		return md, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// buildSnapshot must only be called from the Run goroutine: it reads
// Record fields directly.
func (e *Engine) buildSnapshot(now time.Time) []directory.Metadata {
	recs := e.dir.VerifiedSnapshot()
	out := make([]directory.Metadata, 0, len(recs))
	for _, r := range recs {
		if r.Metadata == nil {
			continue
		}
		md := *r.Metadata
		md.Age = int(now.Sub(r.AddTime).Seconds())
		out = append(out, md)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Age > out[j].Age })
	return out
}
