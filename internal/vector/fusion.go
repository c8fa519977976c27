package vector

import "sort"

// rrfConstant is RRF's standard smoothing constant (k=60), empirically
// used across BM25+vector hybrid search implementations (Azure AI Search,
// OpenSearch), kept from the teacher's fusion.go.
const rrfConstant = 60

// Weights is the per-side contribution to the fused RRF score.
type Weights struct {
	Keyword  float64
	Semantic float64
}

// WeightsFromAlpha resolves spec §9's open question ("α is hard-coded in
// one place, parameterized in another") as: always a parameter, with
// Keyword = 1-α and Semantic = α.
func WeightsFromAlpha(alpha float64) Weights {
	return Weights{Keyword: 1 - alpha, Semantic: alpha}
}

// Ranked is one side's ranked result list: file ids in best-first order.
type Ranked struct {
	FileID int64
	Score  float64
}

// Fused is one file's combined ranking after RRF.
type Fused struct {
	FileID      int64
	RRFScore    float64
	KeywordRank int // 1-indexed; 0 if absent from the keyword list
	SemanticRank int // 1-indexed; 0 if absent from the semantic list
	InBoth      bool
}

// Fuse combines two best-first ranked lists via reciprocal-rank fusion:
// RRF(d) = Σ weight_i / (k + rank_i). A file missing from one list is
// still scored on that side using missing_rank = max(len(a), len(b)) + 1,
// so it isn't excluded outright, only penalized.
//
// With weights.Semantic == 0, the result is equivalent to keyword-only
// ranking; with weights.Keyword == 0, equivalent to semantic-only ranking
// — the idempotence property spec §8 requires of α ∈ {0, 1}.
func Fuse(keyword, semantic []Ranked, weights Weights) []Fused {
	scores := make(map[int64]*Fused, len(keyword)+len(semantic))

	get := func(id int64) *Fused {
		if f, ok := scores[id]; ok {
			return f
		}
		f := &Fused{FileID: id}
		scores[id] = f
		return f
	}

	for i, r := range keyword {
		f := get(r.FileID)
		f.KeywordRank = i + 1
		f.RRFScore += weights.Keyword / float64(rrfConstant+i+1)
	}
	for i, r := range semantic {
		f := get(r.FileID)
		f.SemanticRank = i + 1
		f.RRFScore += weights.Semantic / float64(rrfConstant+i+1)
		if f.KeywordRank > 0 {
			f.InBoth = true
		}
	}

	missing := len(keyword)
	if len(semantic) > missing {
		missing = len(semantic)
	}
	missing++
	for _, f := range scores {
		if f.KeywordRank == 0 && f.SemanticRank > 0 {
			f.RRFScore += weights.Keyword / float64(rrfConstant+missing)
		}
		if f.SemanticRank == 0 && f.KeywordRank > 0 {
			f.RRFScore += weights.Semantic / float64(rrfConstant+missing)
		}
	}

	out := make([]Fused, 0, len(scores))
	for _, f := range scores {
		// A side with zero weight contributes no files of its own.
		if (weights.Keyword == 0 && f.KeywordRank == 0) || (weights.Semantic == 0 && f.SemanticRank == 0) {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		if out[i].InBoth != out[j].InBoth {
			return out[i].InBoth
		}
		return out[i].FileID < out[j].FileID
	})
	return out
}
