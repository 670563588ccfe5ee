package recorder

import "context"

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(_ context.Context, _ *Snapshot) error { return nil }
func (n *NoopRecorder) RecordDigest(_ context.Context, _ *DigestEvent) error { return nil }
func (n *NoopRecorder) Close() error { return nil }
