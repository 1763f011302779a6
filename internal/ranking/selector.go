package ranking

import (
	"sort"

	"github.com/yungbote/docinsight-backend/internal/domain"
)

const DefaultTopN = 5

// Select picks up to topN candidates. Each keyword, in order, first claims
// its best unclaimed candidate; remaining slots are filled by score. Section
// titles are never repeated and ranks are 1..K in selection order.
// candidates must be in generation order: equal scores resolve to the one
// that appears first.
func Select(candidates []domain.Candidate, keywords []string, topN int) []domain.RankedSection {
	if topN <= 0 {
		topN = DefaultTopN
	}
	used := make(map[string]bool, topN)
	picked := make(map[int]bool, topN)
	out := make([]domain.RankedSection, 0, topN)

	add := func(i int) {
		c := candidates[i]
		used[c.SectionTitle] = true
		picked[i] = true
		out = append(out, domain.RankedSection{Candidate: c, ImportanceRank: len(out) + 1})
	}

	for _, kw := range keywords {
		if len(out) >= topN {
			break
		}
		best := -1
		for i, c := range candidates {
			if used[c.SectionTitle] || !c.HasKeyword(kw) {
				continue
			}
			if best < 0 || c.Score > candidates[best].Score {
				best = i
			}
		}
		if best >= 0 {
			add(best)
		}
	}

	if len(out) < topN {
		rest := make([]int, 0, len(candidates))
		for i := range candidates {
			if !picked[i] {
				rest = append(rest, i)
			}
		}
		sort.SliceStable(rest, func(a, b int) bool {
			return candidates[rest[a]].Score > candidates[rest[b]].Score
		})
		for _, i := range rest {
			if len(out) >= topN {
				break
			}
			if used[candidates[i].SectionTitle] {
				continue
			}
			add(i)
		}
	}
	return out
}
