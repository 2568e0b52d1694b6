package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/karyon-ai/karyon/internal/model"
	"github.com/karyon-ai/karyon/internal/vector"
)

type candidate struct {
	name      string
	embedding vector.Vector
}

func embOf(c candidate) vector.Vector { return c.embedding }

func TestRankNoCandidates(t *testing.T) {
	res, err := Rank(nil, embOf, vector.Vector{1, 0}, 1.5, 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if res.Outcome != OutcomeNoCandidates {
		t.Fatalf("outcome = %d, want OutcomeNoCandidates", res.Outcome)
	}
}

func TestRankNoEmbeddings(t *testing.T) {
	items := []candidate{{name: "a"}, {name: "b"}}
	res, err := Rank(items, embOf, vector.Vector{1, 0}, 1.5, 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if res.Outcome != OutcomeNoEmbeddings {
		t.Fatalf("outcome = %d, want OutcomeNoEmbeddings", res.Outcome)
	}
}

func TestRankNoMatch(t *testing.T) {
	items := []candidate{
		{name: "far", embedding: vector.Vector{10, 0}},
	}
	res, err := Rank(items, embOf, vector.Vector{0, 0}, 1.5, 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if res.Outcome != OutcomeNoMatch {
		t.Fatalf("outcome = %d, want OutcomeNoMatch", res.Outcome)
	}
}

func TestRankOrdersByDistance(t *testing.T) {
	items := []candidate{
		{name: "mid", embedding: vector.Vector{1, 0}},
		{name: "near", embedding: vector.Vector{0.5, 0}},
		{name: "edge", embedding: vector.Vector{1.5, 0}},
		{name: "out", embedding: vector.Vector{2, 0}},
	}
	res, err := Rank(items, embOf, vector.Vector{0, 0}, 1.5, 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if res.Outcome != OutcomeRanked {
		t.Fatalf("outcome = %d, want OutcomeRanked", res.Outcome)
	}
	got := make([]string, len(res.Matches))
	for i, m := range res.Matches {
		got[i] = m.Item.name
	}
	want := []string{"near", "mid", "edge"}
	if len(got) != len(want) {
		t.Fatalf("matches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("matches = %v, want %v", got, want)
		}
	}
}

func TestRankCutoffInclusive(t *testing.T) {
	items := []candidate{{name: "edge", embedding: vector.Vector{1.5, 0}}}
	res, err := Rank(items, embOf, vector.Vector{0, 0}, 1.5, 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if res.Outcome != OutcomeRanked || len(res.Matches) != 1 {
		t.Fatalf("distance equal to cutoff should match, got outcome %d with %d matches", res.Outcome, len(res.Matches))
	}
}

func TestRankTopK(t *testing.T) {
	items := []candidate{
		{name: "a", embedding: vector.Vector{0.1, 0}},
		{name: "b", embedding: vector.Vector{0.2, 0}},
		{name: "c", embedding: vector.Vector{0.3, 0}},
	}
	res, err := Rank(items, embOf, vector.Vector{0, 0}, 1.5, 2)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(res.Matches))
	}
	if res.Matches[0].Item.name != "a" || res.Matches[1].Item.name != "b" {
		t.Fatalf("unexpected topK selection: %v, %v", res.Matches[0].Item.name, res.Matches[1].Item.name)
	}
}

func TestRankDimensionMismatch(t *testing.T) {
	items := []candidate{{name: "a", embedding: vector.Vector{1, 0, 0}}}
	_, err := Rank(items, embOf, vector.Vector{0, 0}, 1.5, 5)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestClassify(t *testing.T) {
	b := Bounds{High: 0.8, Medium: 1.2}
	cases := []struct {
		distance float64
		want     Confidence
	}{
		{0.5, ConfidenceHigh},
		{0.79, ConfidenceHigh},
		{0.8, ConfidenceMedium},
		{1.0, ConfidenceMedium},
		{1.19, ConfidenceMedium},
		{1.2, ConfidenceLow},
		{2.0, ConfidenceLow},
	}
	for _, tc := range cases {
		if got := Classify(tc.distance, b); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.distance, got, tc.want)
		}
	}
}

type fakeEmbedder struct {
	vectors map[string]vector.Vector
	err     error
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([]vector.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]vector.Vector, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = vector.Vector{1, 0}
		}
		out[i] = v
	}
	return out, nil
}

func TestBestSegment(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string]vector.Vector{
		"intro":    {1, 0},
		"relevant": {0, 1},
		"outro":    {0.7, 0.7},
	}}
	loc := NewLocator(emb)

	segments := []model.TranscriptSegment{
		{Text: "intro", Start: 0, End: 5},
		{Text: "relevant", Start: 5, End: 10},
		{Text: "outro", Start: 10, End: 15},
	}
	best, err := loc.BestSegment(context.Background(), segments, vector.Vector{0, 1})
	if err != nil {
		t.Fatalf("BestSegment: %v", err)
	}
	if best == nil || best.Text != "relevant" {
		t.Fatalf("best = %+v, want the relevant segment", best)
	}
}

func TestBestSegmentEmpty(t *testing.T) {
	loc := NewLocator(&fakeEmbedder{})
	best, err := loc.BestSegment(context.Background(), nil, vector.Vector{0, 1})
	if err != nil {
		t.Fatalf("BestSegment: %v", err)
	}
	if best != nil {
		t.Fatalf("best = %+v, want nil for empty chunk", best)
	}
}

func TestBestSegmentEmbedError(t *testing.T) {
	loc := NewLocator(&fakeEmbedder{err: errors.New("rate limited")})
	_, err := loc.BestSegment(context.Background(), []model.TranscriptSegment{{Text: "x"}}, vector.Vector{0, 1})
	if err == nil {
		t.Fatal("expected error from embedder")
	}
}
