// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ExtractionResult holds the values extracted for one entity from one record.
// A record that mentions the entity several times yields several values;
// "not found" is an empty Values slice, not a missing result.
type ExtractionResult struct {
	Entity string   `json:"entity" yaml:"entity"`
	Values []string `json:"values" yaml:"values"`
}

// OutcomeStatus marks whether extraction succeeded for a record.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
)

// RecordOutcome is the result of attempting extraction on one record.
// On success, Results holds exactly one ExtractionResult per schema entity,
// in schema order. On failure, Results is nil and Err carries the cause;
// a failed record never aborts the batch.
type RecordOutcome struct {
	Record  Record             `json:"record" yaml:"record"`
	Results []ExtractionResult `json:"results,omitempty" yaml:"results,omitempty"`
	Status  OutcomeStatus      `json:"status" yaml:"status"`
	Err     string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Values returns the extracted values for the named entity, or nil when the
// outcome carries no result for it.
func (o RecordOutcome) Values(entity string) []string {
	for _, r := range o.Results {
		if r.Entity == entity {
			return r.Values
		}
	}
	return nil
}

// OutputTable is the full batch result: one outcome per input record, in
// input order. Row i always corresponds to input record i.
type OutputTable []RecordOutcome

// EntityStats aggregates extraction counts for one entity across a batch.
type EntityStats struct {
	// RecordsWithValues counts succeeded records where the entity matched
	// at least once.
	RecordsWithValues int `json:"records_with_values" yaml:"records_with_values"`

	// TotalValues sums the number of extracted values across succeeded records.
	TotalValues int `json:"total_values" yaml:"total_values"`
}

// Statistics summarizes a batch. Derived from an OutputTable on demand and
// never stored independently.
type Statistics struct {
	TotalRecords int                    `json:"total_records" yaml:"total_records"`
	Succeeded    int                    `json:"succeeded" yaml:"succeeded"`
	Failed       int                    `json:"failed" yaml:"failed"`
	PerEntity    map[string]EntityStats `json:"per_entity" yaml:"per_entity"`
}

// SuccessRate returns the fraction of records that succeeded, as a
// percentage. Zero for an empty batch.
func (s Statistics) SuccessRate() float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.TotalRecords) * 100
}

// CoverageRate returns the percentage of records with at least one value for
// the named entity. Zero for an empty batch or an unknown entity.
func (s Statistics) CoverageRate(entity string) float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(s.PerEntity[entity].RecordsWithValues) / float64(s.TotalRecords) * 100
}
