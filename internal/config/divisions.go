package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/bytedance/sonic"
)

// Division is one entry of the divisions file.
type Division struct {
	ChampionshipID string `json:"championship_id"`
	Name           string `json:"name"`
	Season         int    `json:"season"`
	DivisionNum    int    `json:"division_num"`
	Slug           string `json:"slug"`
	Game           string `json:"game,omitempty"`
	IsPlayoffs     int    `json:"is_playoffs"`
	DivisionID     int    `json:"division_id,omitempty"`
}

func (d Division) Playoffs() bool { return d.IsPlayoffs != 0 }

// ReadDivisions returns the raw file contents. A missing file is an empty list.
func ReadDivisions(path string) ([]Division, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Division{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read divisions %s: %w", path, err)
	}

	var out []Division
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("divisions file must be a JSON array: %w", err)
	}
	return out, nil
}

// LoadDivisions reads the divisions file and drops seasons older than minSeason.
func LoadDivisions(path string, minSeason int) ([]Division, error) {
	all, err := ReadDivisions(path)
	if err != nil {
		return nil, err
	}

	out := make([]Division, 0, len(all))
	for _, d := range all {
		if d.ChampionshipID == "" || d.Season < minSeason {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// WriteDivisions writes divisions sorted by season descending, then division number.
func WriteDivisions(path string, divisions []Division) error {
	SortDivisions(divisions)
	data, err := sonic.ConfigStd.MarshalIndent(divisions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode divisions: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write divisions %s: %w", path, err)
	}
	return nil
}

func SortDivisions(divisions []Division) {
	sort.SliceStable(divisions, func(i, j int) bool {
		a, b := divisions[i], divisions[j]
		if a.Season != b.Season {
			return a.Season > b.Season
		}
		if a.DivisionNum != b.DivisionNum {
			return a.DivisionNum < b.DivisionNum
		}
		return a.DivisionID < b.DivisionID
	})
}
