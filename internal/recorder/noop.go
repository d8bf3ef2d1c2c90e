package recorder

import "TickSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAction(_ *ActionEvent) error { return nil }
func (n *NoopRecorder) RecordEpoch(_ []EpochEvent) error  { return nil }
func (n *NoopRecorder) RecordHalt(_ *HaltEvent) error     { return nil }
func (n *NoopRecorder) Close() error                      { return nil }

func (n *NoopRecorder) RecentActions(_ string, _ int) ([]model.Action, error) {
	return nil, nil
}
