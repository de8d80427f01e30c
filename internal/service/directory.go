package service

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
)

// DirectoryService looks up employees for pickers and detail dialogs.
type DirectoryService struct {
	API   *hrapi.Client
	Cache *repository.ListCacheRepo
}

func (s *DirectoryService) Employees(ctx context.Context) (Listing[hrapi.Employee], error) {
	return cachedList(ctx, s.Cache, "employees", func(ctx context.Context) ([]hrapi.Employee, error) {
		return s.API.ListEmployees(ctx, "")
	})
}

// RankEmployees orders employees by how well they match query. Candidates
// that are neither a substring hit nor within a third of the query's length
// in edits are dropped.
func RankEmployees(emps []hrapi.Employee, query string, limit int) []hrapi.Employee {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		out := append([]hrapi.Employee(nil), emps...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return truncate(out, limit)
	}

	type scored struct {
		emp   hrapi.Employee
		score int
	}
	maxDist := len([]rune(q))/3 + 1
	var hits []scored
	for _, e := range emps {
		best := -1
		for _, field := range []string{e.Code, e.Name, e.Email} {
			f := strings.ToLower(field)
			if f == "" {
				continue
			}
			var sc int
			switch {
			case f == q:
				sc = 0
			case strings.HasPrefix(f, q):
				sc = 1
			case strings.Contains(f, q):
				sc = 2
			default:
				d := closestWord(f, q)
				if d > maxDist {
					continue
				}
				sc = 3 + d
			}
			if best < 0 || sc < best {
				best = sc
			}
		}
		if best >= 0 {
			hits = append(hits, scored{emp: e, score: best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].emp.Name < hits[j].emp.Name
	})
	out := make([]hrapi.Employee, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.emp)
	}
	return truncate(out, limit)
}

// closestWord is the smallest edit distance between q and any word of f.
func closestWord(f, q string) int {
	best := levenshtein.ComputeDistance(f, q)
	for _, w := range strings.Fields(f) {
		if d := levenshtein.ComputeDistance(w, q); d < best {
			best = d
		}
	}
	return best
}

func truncate(emps []hrapi.Employee, limit int) []hrapi.Employee {
	if limit > 0 && len(emps) > limit {
		return emps[:limit]
	}
	return emps
}
