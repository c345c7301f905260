package recorder

import "SignalDesk/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ *model.AnalysisResult) error         { return nil }
func (n *NoopRecorder) RecordSourceProbe(_ string, _ map[string]bool) error { return nil }
func (n *NoopRecorder) RecordRiskEvent(_ *RiskEvent) error                  { return nil }
func (n *NoopRecorder) Close() error                                         { return nil }
