package analyze

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/filing-monitor/internal/model"
)

var foldCaser = cases.Fold()

// foldKey normalizes a string for deduplication: case-folded with runs of
// whitespace collapsed to single spaces.
func foldKey(s string) string {
	return foldCaser.String(strings.Join(strings.Fields(s), " "))
}

// Merge combines per-chunk analysis records into one. Entities and
// relationships are deduplicated case-insensitively, key facts exactly,
// summaries concatenated in chunk order. The classification with the highest
// confidence wins; ties keep the earlier chunk's answer.
func Merge(parts []model.AnalysisRecord) *model.AnalysisRecord {
	merged := &model.AnalysisRecord{}

	var summaries []string
	entityIdx := make(map[string]int)
	relSeen := make(map[string]struct{})
	factSeen := make(map[string]struct{})

	for _, part := range parts {
		if s := strings.TrimSpace(part.Summary); s != "" {
			summaries = append(summaries, s)
		}

		for _, ent := range part.Entities {
			key := foldKey(ent.Name) + "|" + foldKey(ent.Type)
			if i, ok := entityIdx[key]; ok {
				// Keep the first occurrence but backfill a missing role.
				if merged.Entities[i].Role == "" && ent.Role != "" {
					merged.Entities[i].Role = ent.Role
				}
				continue
			}
			entityIdx[key] = len(merged.Entities)
			merged.Entities = append(merged.Entities, ent)
		}

		for _, rel := range part.Relationships {
			key := foldKey(rel.Subject) + "|" + foldKey(rel.Predicate) + "|" + foldKey(rel.Object)
			if _, ok := relSeen[key]; ok {
				continue
			}
			relSeen[key] = struct{}{}
			merged.Relationships = append(merged.Relationships, rel)
		}

		for _, fact := range part.KeyFacts {
			fact = strings.TrimSpace(fact)
			if fact == "" {
				continue
			}
			if _, ok := factSeen[fact]; ok {
				continue
			}
			factSeen[fact] = struct{}{}
			merged.KeyFacts = append(merged.KeyFacts, fact)
		}

		if part.Classification.Confidence > merged.Classification.Confidence ||
			merged.Classification.PrimaryType == "" {
			merged.Classification = part.Classification
		}
	}

	merged.Summary = strings.Join(summaries, "\n\n")
	return merged
}
