package artifact

// Snapshot tracks the completeness of every field for one buffer state.
type Snapshot struct {
	// Results holds one extraction per field, in document order.
	Results []ExtractionResult

	// IsComplete is true once every field has a terminated value.
	IsComplete bool
}

func newSnapshot(buffer string) *Snapshot {
	results := ExtractAll(buffer)
	complete := true
	for _, r := range results {
		if !r.Complete {
			complete = false
			break
		}
	}
	return &Snapshot{Results: results, IsComplete: complete}
}

// Result returns the extraction for field f.
func (s *Snapshot) Result(f FieldSpec) (ExtractionResult, bool) {
	for _, r := range s.Results {
		if r.Field == f {
			return r, true
		}
	}
	return ExtractionResult{}, false
}

// IsFieldComplete checks if the value of field f has been terminated.
func (s *Snapshot) IsFieldComplete(f FieldSpec) bool {
	if s.IsComplete {
		return true
	}
	r, ok := s.Result(f)
	return ok && r.Complete
}

// WaitingFor returns the names of fields that are not complete yet.
// Useful for UI: "Waiting for: css, js..."
func (s *Snapshot) WaitingFor() []string {
	if s.IsComplete {
		return nil
	}

	result := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		if !r.Complete {
			result = append(result, r.Field.name)
		}
	}
	return result
}
