package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

// ExportResults builds an export of all stored results grouped by profile.
// Results saved without a profile are listed under Anonymous.
func (s *Store) ExportResults() (model.ResultsExport, error) {
	out := model.ResultsExport{
		ExportedAt: time.Now().UTC(),
		Profiles:   []model.ProfileExport{},
		Anonymous:  []model.StoredResult{},
	}

	results, err := s.ListResults(nil)
	if err != nil {
		return out, fmt.Errorf("list results: %w", err)
	}
	out.Count = len(results)

	byProfile := make(map[int64][]model.StoredResult)
	for _, r := range results {
		if r.ProfileID == nil {
			out.Anonymous = append(out.Anonymous, r)
			continue
		}
		byProfile[*r.ProfileID] = append(byProfile[*r.ProfileID], r)
	}

	profiles, err := s.ListProfiles()
	if err != nil {
		return out, fmt.Errorf("list profiles: %w", err)
	}
	for _, p := range profiles {
		badges, err := s.ListBadges(p.ID)
		if err != nil {
			return out, fmt.Errorf("badges for profile %d: %w", p.ID, err)
		}
		rs := byProfile[p.ID]
		if rs == nil {
			rs = []model.StoredResult{}
		}
		out.Profiles = append(out.Profiles, model.ProfileExport{
			ProfileID: p.ID,
			Name:      p.Name,
			Badges:    badges,
			Results:   rs,
		})
	}
	return out, nil
}
