package analyzer

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/curatord/curator/internal/types"
)

// Suffixes that copy tools and versioning habits append to filenames:
// "report (1)", "report - copy", "report_v2", "report copy 3"
var copySuffixRe = regexp.MustCompile(`(?i)[\s_-]*(\(\d+\)|copy(\s*\d+)?|v\d+|final|draft)$`)

// NormalizeFilename case-folds a base name and strips extension and
// copy/version suffixes so "Report (1).pdf" and "report.pdf" compare equal.
func NormalizeFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(base)
	for {
		stripped := copySuffixRe.ReplaceAllString(base, "")
		if stripped == base {
			break
		}
		base = stripped
	}
	return strings.TrimSpace(base)
}

// similarityRatio maps Levenshtein distance to a [0,1] ratio
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// fuzzyCandidates compares normalized filenames pairwise within each
// (size, extension) bucket of the exact-match leftovers. Output is
// advisory: candidates go to manual review and are never auto-merged.
func (a *Analyzer) fuzzyCandidates(leftovers []*types.FileRecord) []types.ReviewCandidate {
	buckets := make(map[sizeExtKey][]*types.FileRecord)
	for _, f := range leftovers {
		key := sizeExtKey{size: f.Size, ext: f.Extension()}
		buckets[key] = append(buckets[key], f)
	}

	var candidates []types.ReviewCandidate
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Path < bucket[j].Path })
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				sim := a.Similarity(NormalizeFilename(bucket[i].Path), NormalizeFilename(bucket[j].Path))
				if sim >= a.cfg.FuzzyThreshold {
					candidates = append(candidates, types.ReviewCandidate{
						FileAID:    bucket[i].ID,
						FileBID:    bucket[j].ID,
						PathA:      bucket[i].Path,
						PathB:      bucket[j].Path,
						Similarity: sim,
					})
				}
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PathA != candidates[j].PathA {
			return candidates[i].PathA < candidates[j].PathA
		}
		return candidates[i].PathB < candidates[j].PathB
	})
	return candidates
}
