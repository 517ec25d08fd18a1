package api

import (
	"context"
	"fmt"
	"net/url"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/constants"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// MatchType is the listing filter of the championship matches endpoint.
type MatchType string

const (
	MatchTypePast     MatchType = "past"
	MatchTypeOngoing  MatchType = "ongoing"
	MatchTypeUpcoming MatchType = "upcoming"
	MatchTypeAll      MatchType = "all"
)

func (t MatchType) expand() []MatchType {
	if t == MatchTypeAll || t == "" {
		return []MatchType{MatchTypePast, MatchTypeOngoing, MatchTypeUpcoming}
	}
	return []MatchType{t}
}

// FaceitClient exposes the open data API and the democracy (veto) service.
type FaceitClient struct {
	client        *RateLimitedClient
	apiKey        string
	openBase      string
	democracyBase string
	pageSize      int
	logger        zerolog.Logger
}

func NewFaceitClient(cfg *config.Config, client *RateLimitedClient, logger zerolog.Logger) *FaceitClient {
	return &FaceitClient{
		client:        client,
		apiKey:        cfg.FaceitAPIKey,
		openBase:      strings.TrimRight(cfg.OpenBaseURL, "/"),
		democracyBase: strings.TrimRight(cfg.DemocracyURL, "/"),
		pageSize:      constants.PageSize,
		logger:        logger,
	}
}

// WithPageSize overrides the listing page size.
func (c *FaceitClient) WithPageSize(n int) *FaceitClient {
	if n > 0 {
		c.pageSize = n
	}
	return c
}

func (c *FaceitClient) openAuth() string {
	if c.apiKey == "" {
		return ""
	}
	return "Bearer " + c.apiKey
}

// ListChampionshipMatches pages through every requested type. A soft failure
// ends the listing of that type only.
func (c *FaceitClient) ListChampionshipMatches(ctx context.Context, championshipID string, matchType MatchType) ([]Match, error) {
	endpoint := fmt.Sprintf("%s/championships/%s/matches", c.openBase, url.PathEscape(championshipID))
	out := make([]Match, 0, c.pageSize)

	for _, mt := range matchType.expand() {
		items, err := paginate[MatchList](ctx, c, endpoint, url.Values{"type": {string(mt)}}, func(p *MatchList) []Match { return p.Items })
		if err != nil {
			return nil, fmt.Errorf("list %s matches of %s: %w", mt, championshipID, err)
		}
		c.logger.Debug().Str("championship_id", championshipID).Str("type", string(mt)).Int("count", len(items)).Msg("listed matches")
		out = append(out, items...)
	}
	return out, nil
}

func (c *FaceitClient) ListOrganizerChampionships(ctx context.Context, organizerID string) ([]Championship, error) {
	endpoint := fmt.Sprintf("%s/organizers/%s/championships", c.openBase, url.PathEscape(organizerID))
	items, err := paginate[ChampionshipList](ctx, c, endpoint, url.Values{}, func(p *ChampionshipList) []Championship { return p.Items })
	if err != nil {
		return nil, fmt.Errorf("list championships of organizer %s: %w", organizerID, err)
	}
	return items, nil
}

func (c *FaceitClient) GetMatchDetails(ctx context.Context, matchID string) (*Match, error) {
	endpoint := fmt.Sprintf("%s/matches/%s", c.openBase, url.PathEscape(matchID))
	return getJSON[Match](ctx, c.client, endpoint, nil, c.openAuth())
}

func (c *FaceitClient) GetMatchStats(ctx context.Context, matchID string) (*MatchStats, error) {
	endpoint := fmt.Sprintf("%s/matches/%s/stats", c.openBase, url.PathEscape(matchID))
	return getJSON[MatchStats](ctx, c.client, endpoint, nil, c.openAuth())
}

// GetDemocracyHistory never sends credentials.
func (c *FaceitClient) GetDemocracyHistory(ctx context.Context, matchID string) (*DemocracyHistory, error) {
	endpoint := fmt.Sprintf("%s/match/%s/history", c.democracyBase, url.PathEscape(matchID))
	return getJSON[DemocracyHistory](ctx, c.client, endpoint, nil, "")
}

func paginate[P any, T any](ctx context.Context, c *FaceitClient, endpoint string, base url.Values, items func(*P) []T) ([]T, error) {
	var out []T
	for offset := 0; ; offset += c.pageSize {
		params := url.Values{}
		for k, v := range base {
			params[k] = v
		}
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(c.pageSize))

		page, err := getJSON[P](ctx, c.client, endpoint, params, c.openAuth())
		if err != nil {
			return nil, err
		}
		if page == nil {
			c.logger.Info().Str("url", endpoint).Int("offset", offset).Msg("listing unavailable, stopping")
			return out, nil
		}

		batch := items(page)
		out = append(out, batch...)
		if len(batch) < c.pageSize {
			return out, nil
		}
	}
}
