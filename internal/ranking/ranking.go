// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ranking holds the scoring functions shared by the store backends
// and the orchestrators: cosine similarity for papers and weighted Jaccard
// overlap of topic profiles for authors.
package ranking

import (
	"math"
	"sort"

	"github.com/pdiddy/research-connector/pkg/types"
)

// Cosine returns the cosine similarity of a and b in [-1,1]. Vectors of
// different length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Clamp01 limits v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// SortPapers orders results by score descending, then paper ID ascending.
func SortPapers(papers []types.ScoredPaper) {
	sort.SliceStable(papers, func(i, j int) bool {
		if papers[i].SimilarityScore != papers[j].SimilarityScore {
			return papers[i].SimilarityScore > papers[j].SimilarityScore
		}
		return papers[i].PaperID < papers[j].PaperID
	})
}

// SortAuthors orders recommendations by score descending, then author ID
// ascending.
func SortAuthors(authors []types.ScoredAuthor) {
	sort.SliceStable(authors, func(i, j int) bool {
		if authors[i].SimilarityScore != authors[j].SimilarityScore {
			return authors[i].SimilarityScore > authors[j].SimilarityScore
		}
		return authors[i].AuthorID < authors[j].AuthorID
	})
}

// Tag is one confidence-weighted topic association of a paper.
type Tag struct {
	PaperID    string
	TopicID    int
	Confidence float64
}

// Profile is a topic distribution: weights are non-negative and sum to 1.
type Profile map[int]float64

// BuildProfile sums confidence per topic over tags and normalises the sums to
// proportions. Non-positive confidences are ignored. An author without
// usable tags has an empty profile.
func BuildProfile(tags []Tag) Profile {
	sums := make(map[int]float64)
	var total float64
	for _, t := range tags {
		if t.Confidence <= 0 || math.IsNaN(t.Confidence) {
			continue
		}
		sums[t.TopicID] += t.Confidence
		total += t.Confidence
	}
	p := make(Profile, len(sums))
	if total == 0 {
		return p
	}
	for id, s := range sums {
		p[id] = s / total
	}
	return p
}

// WeightedJaccard returns sum(min)/sum(max) over the union of topics. It is
// symmetric, lies in [0,1] and is 1 for identical non-empty profiles.
func WeightedJaccard(a, b Profile) float64 {
	var num, den float64
	for id, wa := range a {
		wb := b[id]
		num += math.Min(wa, wb)
		den += math.Max(wa, wb)
	}
	for id, wb := range b {
		if _, ok := a[id]; !ok {
			den += wb
		}
	}
	if den == 0 {
		return 0
	}
	return Clamp01(num / den)
}

// SharedTopics lists topics with positive weight in both profiles, ascending.
func SharedTopics(a, b Profile) []int {
	var shared []int
	for id, wa := range a {
		if wa > 0 && b[id] > 0 {
			shared = append(shared, id)
		}
	}
	sort.Ints(shared)
	return shared
}

// CountPapersWithTopics counts distinct papers in tags carrying at least one
// of topics.
func CountPapersWithTopics(tags []Tag, topics []int) int {
	want := make(map[int]bool, len(topics))
	for _, t := range topics {
		want[t] = true
	}
	seen := make(map[string]bool)
	for _, t := range tags {
		if want[t.TopicID] {
			seen[t.PaperID] = true
		}
	}
	return len(seen)
}

// Candidate is one author's tag set considered for recommendation.
type Candidate struct {
	Author types.AuthorDetail
	Tags   []Tag
}

// Recommend scores every candidate against the requester's tags. Candidates
// without shared topics are dropped. The result is sorted and capped at
// limit when limit > 0. RecommendationID is left for the caller to assign.
func Recommend(requester []Tag, candidates []Candidate, limit int) []types.ScoredAuthor {
	up := BuildProfile(requester)
	var out []types.ScoredAuthor
	for _, c := range candidates {
		cp := BuildProfile(c.Tags)
		shared := SharedTopics(up, cp)
		if len(shared) == 0 {
			continue
		}
		out = append(out, types.ScoredAuthor{
			AuthorID:        c.Author.ID,
			AuthorName:      c.Author.Name,
			AuthorEmail:     c.Author.Email,
			InstitutionName: c.Author.Institution,
			SimilarityScore: WeightedJaccard(up, cp),
			SharedTopics:    shared,
			PaperCount:      CountPapersWithTopics(c.Tags, shared),
		})
	}
	SortAuthors(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
