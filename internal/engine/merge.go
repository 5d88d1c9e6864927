package engine

import (
	"sort"

	"github.com/starford/memosync/internal/models"
)

// Merge combines a local snapshot with the notes built from a remote listing.
//
//   - remote notes form the base of the result; a repeated remote slug keeps its first entry
//   - local notes with no remote counterpart are appended unchanged
//   - when a remote body is empty and the local body is not, the local body is kept
//     together with the remote token; otherwise the remote body wins
//
// Remote notes inherit LastModified from their local counterpart. The result is
// sorted by slug, newest first.
func Merge(local, remote []models.Note) []models.Note {
	return merge(local, remote, nil)
}

// merge is Merge with a hook called for every slug whose local body was kept.
func merge(local, remote []models.Note, kept func(slug string)) []models.Note {
	byLocal := make(map[string]models.Note, len(local))
	for _, n := range local {
		if _, dup := byLocal[n.Slug]; !dup {
			byLocal[n.Slug] = n
		}
	}

	merged := make([]models.Note, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote)+len(local))
	for _, r := range remote {
		if _, dup := seen[r.Slug]; dup {
			continue
		}
		seen[r.Slug] = struct{}{}
		if l, ok := byLocal[r.Slug]; ok {
			r.LastModified = l.LastModified
			if r.Body == "" && l.Body != "" {
				r.Body = l.Body
				if kept != nil {
					kept(r.Slug)
				}
			}
		}
		merged = append(merged, r)
	}
	for _, l := range local {
		if _, ok := seen[l.Slug]; ok {
			continue
		}
		seen[l.Slug] = struct{}{}
		merged = append(merged, l)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Slug > merged[j].Slug })
	return merged
}
