package metrics

// MultiSink fans records out to several sinks, returning the first error encountered.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDayReport forwards the report to all sinks.
func (m *MultiSink) RecordDayReport(r DayReport) error {
	for _, s := range m.Sinks {
		if err := s.RecordDayReport(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordPlantStates forwards plant snapshots.
func (m *MultiSink) RecordPlantStates(states []PlantState) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlantStates(states); err != nil {
			return err
		}
	}
	return nil
}

// RecordPartEvent forwards part events to the sinks that support them.
func (m *MultiSink) RecordPartEvent(ev PartEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PartEventRecorder); ok {
			if err := rec.RecordPartEvent(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAdequacy forwards adequacy summaries to the sinks that support them.
func (m *MultiSink) RecordAdequacy(sum AdequacySummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AdequacyRecorder); ok {
			if err := rec.RecordAdequacy(sum); err != nil {
				return err
			}
		}
	}
	return nil
}
