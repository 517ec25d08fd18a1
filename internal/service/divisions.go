package service

import (
	"context"
	"fmt"
	"pappaliiga-stats/internal/api"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/constants"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var (
	divisionRx = regexp.MustCompile(`(?i)(divisioona|division|mestaruussarja)`)
	leadNumRx  = regexp.MustCompile(`^\s*(\d{1,3})\s*[\.\-]?\s*`)
	seasonRx   = regexp.MustCompile(`(?i)(?:S|Season)\s*([0-9]{1,2})`)
	playoffRx  = regexp.MustCompile(`(?i)playoff`)
)

type ChampionshipSource interface {
	ListOrganizerChampionships(ctx context.Context, organizerID string) ([]api.Championship, error)
}

// DivisionDiscovery builds division entries from an organizer's championships.
type DivisionDiscovery struct {
	source ChampionshipSource
	logger zerolog.Logger
}

func NewDivisionDiscovery(source ChampionshipSource, logger zerolog.Logger) *DivisionDiscovery {
	return &DivisionDiscovery{source: source, logger: logger}
}

func (d *DivisionDiscovery) Discover(ctx context.Context, organizerID string, minSeason int) ([]config.Division, error) {
	champs, err := d.source.ListOrganizerChampionships(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("discover divisions: %w", err)
	}

	seen := make(map[string]struct{}, len(champs))
	var out []config.Division
	for _, c := range champs {
		cid := c.ChampionshipID()
		name := strings.TrimSpace(c.Name.String())
		if cid == "" || name == "" {
			continue
		}
		if _, ok := seen[cid]; ok {
			continue
		}
		if c.GameTag() != constants.DefaultGame || !divisionRx.MatchString(name) {
			continue
		}

		season := ParseSeason(name)
		if season < minSeason {
			continue
		}
		num := ParseDivisionNum(name)
		po := playoffRx.MatchString(name)

		isPO := 0
		if po {
			isPO = 1
		}
		out = append(out, config.Division{
			ChampionshipID: cid,
			Name:           name,
			Season:         season,
			DivisionNum:    num,
			Slug:           DivisionSlug(num, season, po),
			Game:           constants.DefaultGame,
			IsPlayoffs:     isPO,
		})
		seen[cid] = struct{}{}
	}

	config.SortDivisions(out)
	d.logger.Info().Int("championships", len(champs)).Int("divisions", len(out)).Msg("divisions discovered")
	return out, nil
}

// ParseDivisionNum reads the leading number of a name. Names without one,
// like the mestaruussarja, are division 0.
func ParseDivisionNum(name string) int {
	if m := leadNumRx.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

func ParseSeason(name string) int {
	m := seasonRx.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func DivisionSlug(num, season int, playoffs bool) string {
	suffix := ""
	if playoffs {
		suffix = "-po"
	}
	if season == 0 {
		return fmt.Sprintf("div%d%s", num, suffix)
	}
	return fmt.Sprintf("div%d-s%d%s", num, season, suffix)
}

func uniqueSlug(proposed, cid string, used map[string]struct{}) string {
	if _, taken := used[proposed]; !taken {
		return proposed
	}
	short := strings.ReplaceAll(cid, "-", "")
	if len(short) > constants.DivisionSlugIDChars {
		short = short[:constants.DivisionSlugIDChars]
	}
	return proposed + "-" + short
}

// MergeDivisions adds discovered divisions to existing ones without
// overwriting anything already set. Existing division ids never change;
// new entries get the next free id.
func MergeDivisions(existing, discovered []config.Division) []config.Division {
	merged := make([]config.Division, 0, len(existing)+len(discovered))
	byID := make(map[string]int, len(existing))
	used := make(map[string]struct{}, len(existing))
	nextID := constants.DivisionIDStart

	for _, e := range existing {
		if e.Slug != "" {
			used[e.Slug] = struct{}{}
		}
		if e.DivisionID >= nextID {
			nextID = e.DivisionID + 1
		}
		if i, ok := byID[e.ChampionshipID]; ok && e.ChampionshipID != "" {
			merged[i] = e
			continue
		}
		byID[e.ChampionshipID] = len(merged)
		merged = append(merged, e)
	}

	for _, d := range discovered {
		i, ok := byID[d.ChampionshipID]
		if !ok {
			d.DivisionID = nextID
			nextID++
			d.Slug = uniqueSlug(d.Slug, d.ChampionshipID, used)
			used[d.Slug] = struct{}{}
			byID[d.ChampionshipID] = len(merged)
			merged = append(merged, d)
			continue
		}

		cur := &merged[i]
		if strings.TrimSpace(cur.Slug) == "" {
			cur.Slug = uniqueSlug(d.Slug, d.ChampionshipID, used)
			used[cur.Slug] = struct{}{}
		}
		cur.Name = fillString(cur.Name, d.Name)
		cur.Game = fillString(cur.Game, d.Game)
		cur.Season = fillInt(cur.Season, d.Season)
		cur.DivisionNum = fillInt(cur.DivisionNum, d.DivisionNum)
		cur.IsPlayoffs = fillInt(cur.IsPlayoffs, d.IsPlayoffs)
	}

	config.SortDivisions(merged)
	return merged
}

func fillString(cur, incoming string) string {
	if strings.TrimSpace(cur) == "" {
		return incoming
	}
	return cur
}

func fillInt(cur, incoming int) int {
	if cur == 0 && incoming > 0 {
		return incoming
	}
	return cur
}
