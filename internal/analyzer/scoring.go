package analyzer

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/curatord/curator/internal/types"
)

// Generic tokens that disqualify a filename from the descriptive-name bonus
var genericTokens = []string{"copy", "untitled", "new folder", "duplicate"}

// SelectCanonical picks the authoritative member of an exact-duplicate
// group. Scoring is policy (configurable weights); the final tiebreak is
// the lexicographically smallest path, which makes selection deterministic
// for any input order.
func (a *Analyzer) SelectCanonical(members []*types.FileRecord) *types.FileRecord {
	if len(members) == 1 {
		return members[0]
	}

	var maxMtime = members[0].ModTime
	minDepth := pathDepth(members[0].Path)
	for _, f := range members[1:] {
		if f.ModTime.After(maxMtime) {
			maxMtime = f.ModTime
		}
		if d := pathDepth(f.Path); d < minDepth {
			minDepth = d
		}
	}
	medianNameLen := medianFilenameLength(members)
	maxAccess := 0
	for _, f := range members {
		if c := a.AccessCounts[f.ID]; c > maxAccess {
			maxAccess = c
		}
	}

	best := members[0]
	bestScore := -1
	for _, f := range members {
		score := 0
		if f.ModTime.Equal(maxMtime) {
			score += a.cfg.Scoring.NewestMtime
		}
		if a.underPreferredRoot(f.Path) {
			score += a.cfg.Scoring.PreferredRoot
		}
		if pathDepth(f.Path) == minDepth {
			score += a.cfg.Scoring.ShallowestPath
		}
		if descriptiveName(f.Path, medianNameLen) {
			score += a.cfg.Scoring.DescriptiveName
		}
		if maxAccess > 0 {
			score += a.cfg.Scoring.AccessMax * a.AccessCounts[f.ID] / maxAccess
		}

		if score > bestScore || (score == bestScore && f.Path < best.Path) {
			best = f
			bestScore = score
		}
	}
	return best
}

func (a *Analyzer) underPreferredRoot(path string) bool {
	for _, root := range a.cfg.PreferredRoots {
		if root == "" {
			continue
		}
		if rel, err := filepath.Rel(root, path); err == nil &&
			rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func pathDepth(path string) int {
	return strings.Count(filepath.ToSlash(filepath.Clean(path)), "/")
}

func medianFilenameLength(members []*types.FileRecord) int {
	lengths := make([]int, len(members))
	for i, f := range members {
		lengths[i] = len(filepath.Base(f.Path))
	}
	sort.Ints(lengths)
	return lengths[len(lengths)/2]
}

// descriptiveName rewards filenames longer than the group median that
// avoid generic tokens
func descriptiveName(path string, median int) bool {
	base := filepath.Base(path)
	if len(base) <= median {
		return false
	}
	lower := strings.ToLower(base)
	for _, tok := range genericTokens {
		if strings.Contains(lower, tok) {
			return false
		}
	}
	return true
}
