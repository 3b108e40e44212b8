package browser

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DownstreamFunc runs the export stage for a stored collection
type DownstreamFunc func(ctx context.Context, key string) error

// Orchestrator launches the export stage after handoff and closes the
// viewer tab. Without a downstream func it prints the export command.
type Orchestrator struct {
	session    *Session
	downstream DownstreamFunc
	out        io.Writer
}

// NewOrchestrator binds an orchestrator to a tab. downstream may be nil.
func NewOrchestrator(s *Session, downstream DownstreamFunc, out io.Writer) *Orchestrator {
	if out == nil {
		out = os.Stdout
	}
	return &Orchestrator{session: s, downstream: downstream, out: out}
}

// OpenDownstream hands key to the export stage
func (o *Orchestrator) OpenDownstream(ctx context.Context, key string) error {
	if o.downstream != nil {
		return o.downstream(ctx, key)
	}
	_, err := fmt.Fprintf(o.out, "Collection saved. Export it with:\n  albumscan export --key %s\n", key)
	return err
}

// Dispose closes the viewer tab
func (o *Orchestrator) Dispose(ctx context.Context) error {
	if o.session != nil {
		o.session.Close()
	}
	return nil
}
