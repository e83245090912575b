package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaper_Normalize(t *testing.T) {
	t.Run("fills sentinels for missing fields", func(t *testing.T) {
		p := &Paper{Title: "  ", Source: "arXiv"}
		p.Normalize()

		assert.Equal(t, UntitledTitle, p.Title)
		assert.Equal(t, NoAbstract, p.Abstract)
		assert.Equal(t, UnknownVenue, p.Venue)
		assert.NotNil(t, p.Authors)
		assert.NotNil(t, p.FieldsOfStudy)
		assert.False(t, p.HasAbstract())
	})

	t.Run("keeps populated fields and trims identifiers", func(t *testing.T) {
		p := &Paper{
			Title:    " Attention Is All You Need ",
			Abstract: "Transformers.",
			Venue:    "NeurIPS",
			DOI:      " 10.1/abc ",
		}
		p.Normalize()

		assert.Equal(t, "Attention Is All You Need", p.Title)
		assert.Equal(t, "Transformers.", p.Abstract)
		assert.Equal(t, "NeurIPS", p.Venue)
		assert.Equal(t, "10.1/abc", p.DOI)
	})

	t.Run("clamps negative counts", func(t *testing.T) {
		p := &Paper{Year: -3, Citations: IntPtr(-5), InfluentialCitations: IntPtr(-1)}
		p.Normalize()

		assert.Equal(t, 0, p.Year)
		require.NotNil(t, p.Citations)
		assert.Equal(t, 0, *p.Citations)
		assert.Equal(t, 0, p.InfluentialCitationCount())
	})
}

func TestPaper_CitationCount(t *testing.T) {
	assert.Equal(t, 0, (&Paper{}).CitationCount())
	assert.Equal(t, 0, (&Paper{Citations: IntPtr(-2)}).CitationCount())
	assert.Equal(t, 42, (&Paper{Citations: IntPtr(42)}).CitationCount())
}

func TestPaper_AddSource(t *testing.T) {
	p := &Paper{}
	p.AddSource("A")
	p.AddSource("B")
	p.AddSource("A")

	assert.Equal(t, []string{"A", "B"}, p.Sources)
}

func TestPaper_Clone(t *testing.T) {
	score := 0.5
	p := &Paper{
		Title:        "Original",
		Authors:      []Author{{Name: "Ada"}},
		Citations:    IntPtr(3),
		QualityScore: &score,
		Sources:      []string{"A"},
	}

	c := p.Clone()
	c.Authors[0].Name = "Grace"
	*c.Citations = 10
	*c.QualityScore = 0.9
	c.Sources[0] = "B"

	assert.Equal(t, "Ada", p.Authors[0].Name)
	assert.Equal(t, 3, *p.Citations)
	assert.Equal(t, 0.5, *p.QualityScore)
	assert.Equal(t, "A", p.Sources[0])
}

func TestPaper_JSONNullCitations(t *testing.T) {
	p := &Paper{Title: "T", Source: "arXiv"}
	p.Normalize()

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	v, ok := m["citations"]
	assert.True(t, ok)
	assert.Nil(t, v)
	_, hasScore := m["quality_score"]
	assert.False(t, hasScore)
}

func TestSourceType(t *testing.T) {
	tests := []struct {
		input string
		want  SourceType
		ok    bool
	}{
		{"semantic_scholar", SourceTypeSemanticScholar, true},
		{"Semantic Scholar", SourceTypeSemanticScholar, true},
		{"ARXIV", SourceTypeArXiv, true},
		{"core", SourceTypeCORE, true},
		{"pubmed", SourceTypePubMed, true},
		{"scopus", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseSourceType(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "Semantic Scholar", SourceTypeSemanticScholar.DisplayName())
	assert.Equal(t, "CORE", SourceTypeCORE.DisplayName())
	assert.Len(t, DefaultSourceOrder, 6)
}
