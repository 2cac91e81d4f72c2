package model

import "time"

// ResultsExport is the top-level JSON structure for quiz result export.
type ResultsExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Profiles   []ProfileExport `json:"profiles"`
	Anonymous  []StoredResult  `json:"anonymous"`
}

// ProfileExport holds one profile's results and badges.
type ProfileExport struct {
	ProfileID int64           `json:"profile_id"`
	Name      string          `json:"name"`
	Badges    []UnlockedBadge `json:"badges"`
	Results   []StoredResult  `json:"results"`
}
