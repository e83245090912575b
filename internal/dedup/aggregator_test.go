package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

func p(source, title, doi string) *domain.Paper {
	return &domain.Paper{Title: title, DOI: doi, Source: source}
}

func TestDOIKey(t *testing.T) {
	assert.Equal(t, "10.1/x", DOIKey("  10.1/X "))
	assert.Equal(t, "", DOIKey("   "))
}

func TestTitleKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Deep Learning", "deeplearning"},
		{"deep-learning!", "deeplearning"},
		{"  GPT-4: A Report ", "gpt4areport"},
		{"Über Graphen", "bergraphen"},
		{"???", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleKey(tt.in))
		})
	}
}

func TestAggregate(t *testing.T) {
	t.Run("same DOI different case and title", func(t *testing.T) {
		a := p("A", "Deep Learning", "10.1/X")
		b := p("B", "Deep learning: a review", " 10.1/x ")

		got := Aggregate([][]*domain.Paper{{a}, {b}})

		require.Len(t, got, 1)
		assert.Same(t, a, got[0])
		assert.Equal(t, []string{"A", "B"}, got[0].Sources)
	})

	t.Run("no DOI but same normalized title", func(t *testing.T) {
		got := Aggregate([][]*domain.Paper{
			{p("A", "Attention Is All You Need", "")},
			{p("B", "attention is all you need.", "")},
		})

		require.Len(t, got, 1)
		assert.Equal(t, "Attention Is All You Need", got[0].Title)
		assert.Equal(t, []string{"A", "B"}, got[0].Sources)
	})

	t.Run("distinct papers survive in order", func(t *testing.T) {
		got := Aggregate([][]*domain.Paper{
			{p("A", "First", "10.1/a"), p("A", "Second", "")},
			{p("B", "Third", "10.1/c")},
		})

		require.Len(t, got, 3)
		assert.Equal(t, "First", got[0].Title)
		assert.Equal(t, "Second", got[1].Title)
		assert.Equal(t, "Third", got[2].Title)
		for _, paper := range got {
			assert.Nil(t, paper.Sources)
		}
	})

	t.Run("different DOIs with same title merge by title", func(t *testing.T) {
		got := Aggregate([][]*domain.Paper{
			{p("A", "Same Title", "10.1/a")},
			{p("B", "Same Title", "10.1/b")},
		})

		require.Len(t, got, 1)
		assert.Equal(t, "10.1/a", got[0].DOI)
	})

	t.Run("empty title keys never match", func(t *testing.T) {
		got := Aggregate([][]*domain.Paper{
			{p("A", "???", "")},
			{p("B", "!!!", "")},
		})

		assert.Len(t, got, 2)
	})

	t.Run("sources are not repeated", func(t *testing.T) {
		got := Aggregate([][]*domain.Paper{
			{p("A", "X", "10.1/x"), p("A", "X", "10.1/x")},
			{p("B", "X", "10.1/x")},
		})

		require.Len(t, got, 1)
		assert.Equal(t, []string{"A", "B"}, got[0].Sources)
	})

	t.Run("nil entries are skipped", func(t *testing.T) {
		got := Aggregate([][]*domain.Paper{{nil, p("A", "X", "")}, nil})
		assert.Len(t, got, 1)
	})

	t.Run("empty input", func(t *testing.T) {
		got := Aggregate(nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestAggregate_FillOnlyMerge(t *testing.T) {
	t.Run("fills empty fields", func(t *testing.T) {
		first := &domain.Paper{Title: "Deep Learning", DOI: "10.1/X", Source: "A"}
		dup := &domain.Paper{
			Title:     "Deep Learning",
			DOI:       "10.1/x",
			Source:    "B",
			PDFURL:    "http://x",
			ArXivID:   "1234.5678",
			Citations: domain.IntPtr(42),
		}

		got := Aggregate([][]*domain.Paper{{first}, {dup}})

		require.Len(t, got, 1)
		assert.Equal(t, "http://x", got[0].PDFURL)
		assert.Equal(t, "1234.5678", got[0].ArXivID)
		require.NotNil(t, got[0].Citations)
		assert.Equal(t, 42, *got[0].Citations)
		assert.Equal(t, "10.1/X", got[0].DOI)
	})

	t.Run("never overwrites", func(t *testing.T) {
		first := &domain.Paper{
			Title:     "T",
			Source:    "A",
			PDFURL:    "http://first",
			ArXivID:   "1",
			Citations: domain.IntPtr(5),
		}
		dup := &domain.Paper{
			Title:     "T",
			Source:    "B",
			PDFURL:    "http://second",
			ArXivID:   "2",
			DOI:       "10.1/t",
			Citations: domain.IntPtr(500),
		}

		got := Aggregate([][]*domain.Paper{{first}, {dup}})

		require.Len(t, got, 1)
		assert.Equal(t, "http://first", got[0].PDFURL)
		assert.Equal(t, "1", got[0].ArXivID)
		assert.Equal(t, 5, *got[0].Citations)
		assert.Equal(t, "10.1/t", got[0].DOI)
	})

	t.Run("zero citations count as empty", func(t *testing.T) {
		first := &domain.Paper{Title: "T", Source: "A", Citations: domain.IntPtr(0)}
		dup := &domain.Paper{Title: "T", Source: "B", Citations: domain.IntPtr(7)}

		got := Aggregate([][]*domain.Paper{{first}, {dup}})

		assert.Equal(t, 7, *got[0].Citations)
	})

	t.Run("DOI learned through a title match is registered", func(t *testing.T) {
		got := Aggregate([][]*domain.Paper{
			{p("A", "Original Title", "")},
			{p("B", "Original Title", "10.1/o")},
			{p("C", "Renamed In Print", "10.1/O")},
		})

		require.Len(t, got, 1)
		assert.Equal(t, []string{"A", "B", "C"}, got[0].Sources)
	})
}

func TestAggregate_Idempotent(t *testing.T) {
	input := [][]*domain.Paper{
		{p("A", "Deep Learning", "10.1/X"), p("A", "Graphs", "")},
		{p("B", "deep learning", ""), p("B", "Graphs!", "10.2/g"), p("B", "Trees", "10.3/t")},
		{p("C", "Forests", "10.3/T"), p("C", "Untitled", "")},
	}

	once := Aggregate(input)
	twice := Aggregate([][]*domain.Paper{once})

	assert.Equal(t, once, twice)
}

func TestAggregator_Stats(t *testing.T) {
	a := NewAggregator()
	a.Add([]*domain.Paper{p("A", "X", "10.1/x"), p("A", "Y", "")})
	a.Add([]*domain.Paper{p("B", "X", "10.1/X"), p("B", "Z", "")})

	assert.Equal(t, Stats{Raw: 4, Unique: 3, Merged: 1}, a.Stats())
	assert.Len(t, a.Papers(), 3)
}
