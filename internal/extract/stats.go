// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "github.com/pdiddy/spark-engine/pkg/types"

// Summarize computes batch statistics from an output table. Pure function:
// the same table always yields the same statistics. Every schema entity gets
// an entry even when nothing was extracted for it; failed records contribute
// zero to every entity.
func Summarize(table types.OutputTable, schema *types.Schema) types.Statistics {
	stats := types.Statistics{
		TotalRecords: len(table),
		PerEntity:    make(map[string]types.EntityStats, len(schema.Entities)),
	}

	for _, ent := range schema.Entities {
		stats.PerEntity[ent.Name] = types.EntityStats{}
	}

	for _, outcome := range table {
		if outcome.Status != types.StatusSucceeded {
			stats.Failed++
			continue
		}
		stats.Succeeded++

		for _, result := range outcome.Results {
			es, ok := stats.PerEntity[result.Entity]
			if !ok {
				continue
			}
			if len(result.Values) > 0 {
				es.RecordsWithValues++
			}
			es.TotalValues += len(result.Values)
			stats.PerEntity[result.Entity] = es
		}
	}

	return stats
}
