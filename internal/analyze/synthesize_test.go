package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/filing-monitor/internal/model"
)

func TestMergeSingle(t *testing.T) {
	t.Parallel()

	part := model.AnalysisRecord{
		Summary:  "A pipeline application.",
		Entities: []model.Entity{{Name: "TransCo", Type: "company", Role: "applicant"}},
		KeyFacts: []string{"Seeks 120 km extension."},
		Classification: model.Classification{
			PrimaryType: "application",
			Confidence:  90,
		},
	}

	merged := Merge([]model.AnalysisRecord{part})
	assert.Equal(t, part.Summary, merged.Summary)
	assert.Equal(t, part.Entities, merged.Entities)
	assert.Equal(t, part.KeyFacts, merged.KeyFacts)
	assert.Equal(t, part.Classification, merged.Classification)
}

func TestMergeDeduplicatesEntitiesCaseInsensitively(t *testing.T) {
	t.Parallel()

	parts := []model.AnalysisRecord{
		{Entities: []model.Entity{
			{Name: "TransCo Pipelines", Type: "company"},
			{Name: "Jane Doe", Type: "person", Role: "counsel"},
		}},
		{Entities: []model.Entity{
			{Name: "transco  pipelines", Type: "Company", Role: "applicant"},
			{Name: "Jane Doe", Type: "person"},
			{Name: "Jane Doe", Type: "agency"},
		}},
	}

	merged := Merge(parts)
	require.Len(t, merged.Entities, 3)
	// First spelling wins; missing role backfilled from the duplicate.
	assert.Equal(t, "TransCo Pipelines", merged.Entities[0].Name)
	assert.Equal(t, "applicant", merged.Entities[0].Role)
	assert.Equal(t, "counsel", merged.Entities[1].Role)
	// Same name, different type is a distinct entity.
	assert.Equal(t, "agency", merged.Entities[2].Type)
}

func TestMergeDeduplicatesRelationshipsAndFacts(t *testing.T) {
	t.Parallel()

	rel := model.Relationship{Subject: "TransCo", Predicate: "operates", Object: "Line 4"}
	parts := []model.AnalysisRecord{
		{
			Relationships: []model.Relationship{rel},
			KeyFacts:      []string{"Fact one.", "Fact two."},
		},
		{
			Relationships: []model.Relationship{
				{Subject: "transco", Predicate: "OPERATES", Object: "line 4"},
				{Subject: "TransCo", Predicate: "owns", Object: "Line 4"},
			},
			KeyFacts: []string{"Fact two.", "  Fact three. ", ""},
		},
	}

	merged := Merge(parts)
	require.Len(t, merged.Relationships, 2)
	assert.Equal(t, rel, merged.Relationships[0])
	assert.Equal(t, []string{"Fact one.", "Fact two.", "Fact three."}, merged.KeyFacts)
}

func TestMergeClassificationHighestConfidenceWins(t *testing.T) {
	t.Parallel()

	parts := []model.AnalysisRecord{
		{Classification: model.Classification{PrimaryType: "correspondence", Confidence: 60}},
		{Classification: model.Classification{PrimaryType: "application", Confidence: 85}},
		{Classification: model.Classification{PrimaryType: "report", Confidence: 85}},
	}

	merged := Merge(parts)
	assert.Equal(t, "application", merged.Classification.PrimaryType)
	assert.Equal(t, 85, merged.Classification.Confidence)
}

func TestMergeConcatenatesSummaries(t *testing.T) {
	t.Parallel()

	parts := []model.AnalysisRecord{
		{Summary: "Part one."},
		{Summary: ""},
		{Summary: "Part two."},
	}

	merged := Merge(parts)
	assert.Equal(t, "Part one.\n\nPart two.", merged.Summary)
}
