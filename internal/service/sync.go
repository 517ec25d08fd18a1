package service

import (
	"context"
	"fmt"
	"pappaliiga-stats/internal/api"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/constants"
	"pappaliiga-stats/internal/domain"
	"pappaliiga-stats/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// MatchSource is the remote side of a sync pass.
type MatchSource interface {
	ListChampionshipMatches(ctx context.Context, championshipID string, matchType api.MatchType) ([]api.Match, error)
	GetMatchDetails(ctx context.Context, matchID string) (*api.Match, error)
	GetMatchStats(ctx context.Context, matchID string) (*api.MatchStats, error)
	GetDemocracyHistory(ctx context.Context, matchID string) (*api.DemocracyHistory, error)
}

type Syncer struct {
	source        MatchSource
	db            *sqlx.DB
	repos         *repository.Repositories
	skip          *SkipDecider
	logger        zerolog.Logger
	runID         string
	budget        time.Duration
	progressEvery int
	now           func() time.Time
}

func NewSyncer(cfg *config.Config, source MatchSource, db *sqlx.DB, repos *repository.Repositories, skip *SkipDecider, logger zerolog.Logger) *Syncer {
	progress := cfg.ProgressEvery
	if progress <= 0 {
		progress = constants.ProgressEvery
	}
	runID := uuid.NewString()
	return &Syncer{
		source:        source,
		db:            db,
		repos:         repos,
		skip:          skip,
		logger:        logger.With().Str("run_id", runID).Logger(),
		runID:         runID,
		budget:        cfg.PassBudget,
		progressEvery: progress,
		now:           time.Now,
	}
}

func (s *Syncer) RunID() string { return s.runID }

// PassResult counts what one division pass did.
type PassResult struct {
	ChampionshipID string
	Listed         int
	Processed      int
	Skipped        int
	Failed         int
	NotFound       int
	BudgetExceeded bool
	Cancelled      bool
}

func (r *PassResult) count(o domain.Outcome) {
	switch o {
	case domain.OutcomeSkipped, domain.OutcomeBye:
		r.Skipped++
	case domain.OutcomeNotFound:
		r.NotFound++
	case domain.OutcomeFailed:
		r.Failed++
	default:
		r.Processed++
	}
}

// Run syncs every division in order. A failing division is logged and the
// next one is attempted; only cancellation stops the run early.
func (s *Syncer) Run(ctx context.Context, divisions []config.Division) ([]PassResult, error) {
	results := make([]PassResult, 0, len(divisions))
	for _, div := range divisions {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.SyncDivision(ctx, div)
		if err != nil {
			s.logger.Error().Err(err).Str("championship_id", div.ChampionshipID).Str("division", div.Name).Msg("division sync failed")
			continue
		}
		results = append(results, res)
		if res.Cancelled {
			return results, ctx.Err()
		}
	}
	return results, nil
}

// SyncDivision runs one pass over a division: list, decide, fetch, write.
// Each match is isolated in a savepoint and the pass commits once.
func (s *Syncer) SyncDivision(ctx context.Context, div config.Division) (PassResult, error) {
	started := s.now()
	log := s.logger.With().Str("championship_id", div.ChampionshipID).Str("division", div.Name).Logger()

	items, err := s.source.ListChampionshipMatches(ctx, div.ChampionshipID, api.MatchTypeAll)
	if err != nil {
		return PassResult{}, fmt.Errorf("list matches: %w", err)
	}

	pass, err := repository.BeginPass(ctx, s.db, log)
	if err != nil {
		return PassResult{}, err
	}
	defer pass.Rollback()

	wctx := context.WithoutCancel(ctx)
	repos := s.repos.WithTx(pass.Tx())

	champ, err := repos.Championships.Upsert(wctx, championshipFromDivision(div))
	if err != nil {
		return PassResult{}, err
	}

	res := PassResult{ChampionshipID: champ.ChampionshipID}
	seen := make(map[string]struct{}, len(items))
	log.Info().Int("listed", len(items)).Msg("sync pass started")

	for i, item := range items {
		if s.budget > 0 && s.now().Sub(started) > s.budget {
			res.BudgetExceeded = true
			log.Warn().Dur("budget", s.budget).Int("remaining", len(items)-i).Msg("pass budget exceeded, stopping early")
			break
		}
		if ctx.Err() != nil {
			res.Cancelled = true
			log.Warn().Int("remaining", len(items)-i).Msg("sync cancelled, committing finished matches")
			break
		}

		summary := SummaryFromItem(item)
		if summary.MatchID == "" {
			continue
		}
		if _, dup := seen[summary.MatchID]; dup {
			continue
		}
		seen[summary.MatchID] = struct{}{}
		res.Listed++

		outcome, err := s.syncMatch(ctx, pass, repos, champ, div, summary, i)
		if err != nil {
			return res, err
		}
		res.count(outcome)

		if (i+1)%s.progressEvery == 0 {
			s.logProgress(log, started, i+1, len(items))
		}
	}

	_, err = repos.SyncRuns.Insert(wctx, domain.SyncRun{
		RunID:          s.runID,
		ChampionshipID: champ.ChampionshipID,
		StartedAt:      started.Unix(),
		FinishedAt:     s.now().Unix(),
		Listed:         res.Listed,
		Processed:      res.Processed,
		Skipped:        res.Skipped,
		Failed:         res.Failed,
		NotFound:       res.NotFound,
		BudgetExceeded: res.BudgetExceeded,
	})
	if err != nil {
		return res, err
	}
	if err := pass.Commit(); err != nil {
		return res, err
	}

	log.Info().
		Int("listed", res.Listed).
		Int("processed", res.Processed).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Int("not_found", res.NotFound).
		Dur("took", s.now().Sub(started)).
		Msg("sync pass committed")
	return res, nil
}

// syncMatch handles one listed match. A returned error means the pass itself
// is broken; per-match failures are reported as OutcomeFailed.
func (s *Syncer) syncMatch(ctx context.Context, pass *repository.Pass, repos *repository.Repositories, champ domain.Championship, div config.Division, summary domain.MatchSummary, idx int) (domain.Outcome, error) {
	log := s.logger.With().Str("match_id", summary.MatchID).Logger()
	wctx := context.WithoutCancel(ctx)

	if SummaryIsBye(summary) {
		log.Debug().Msg("bye, skipping")
		return domain.OutcomeBye, nil
	}

	snap, err := repos.Matches.Snapshot(wctx, summary.MatchID)
	if err != nil {
		return domain.OutcomeFailed, err
	}
	if d := s.skip.Decide(snap, summary); d.Skip {
		log.Debug().Str("reason", d.Reason).Msg("skipping match")
		return domain.OutcomeSkipped, nil
	}

	sp := fmt.Sprintf("match_%d", idx)
	if err := pass.Savepoint(wctx, sp); err != nil {
		return domain.OutcomeFailed, err
	}

	outcome, err := s.persistMatch(ctx, repos, champ, div, summary)
	if err != nil {
		log.Error().Err(err).Str("status", summary.Status).Msg("match sync failed, rolling back")
		if rbErr := pass.RollbackTo(wctx, sp); rbErr != nil {
			return domain.OutcomeFailed, fmt.Errorf("rollback match %s: %w", summary.MatchID, rbErr)
		}
		if seen, ok, lsErr := repos.Matches.LastSeen(wctx, summary.MatchID); lsErr == nil && ok {
			log.Warn().Time("last_seen_at", time.Unix(seen, 0)).Msg("keeping previously stored match")
		}
		return domain.OutcomeFailed, nil
	}
	if err := pass.Release(wctx, sp); err != nil {
		return domain.OutcomeFailed, err
	}

	log.Debug().Str("outcome", string(outcome)).Msg("match synced")
	return outcome, nil
}

func (s *Syncer) persistMatch(ctx context.Context, repos *repository.Repositories, champ domain.Championship, div config.Division, summary domain.MatchSummary) (domain.Outcome, error) {
	wctx := context.WithoutCancel(ctx)
	now := s.now().Unix()

	if summary.Target != domain.TargetPast {
		if err := s.writeSides(wctx, repos, now, summary.Team1, summary.Team2); err != nil {
			return domain.OutcomeFailed, err
		}
		if err := repos.Matches.UpsertMatch(wctx, HeaderFromSummary(summary, champ.ChampionshipID, now)); err != nil {
			return domain.OutcomeFailed, err
		}
		return domain.OutcomeUpcomingHeaderOnly, nil
	}

	details, err := s.source.GetMatchDetails(ctx, summary.MatchID)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("match details: %w", err)
	}
	if DetailsIsBye(details) {
		return domain.OutcomeBye, nil
	}

	game := champ.Game
	if game == "" {
		game = constants.DefaultGame
	}
	for _, entry := range CatalogFromDetails(details, game) {
		if err := repos.Catalog.Upsert(wctx, entry, now); err != nil {
			return domain.OutcomeFailed, err
		}
		if err := repos.Catalog.AddToSeasonPool(wctx, div.Season, entry.MapID); err != nil {
			return domain.OutcomeFailed, err
		}
	}

	stats, err := s.source.GetMatchStats(ctx, summary.MatchID)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("match stats: %w", err)
	}
	rounds := stats.Rounds()
	kind := ClassifyPast(details, rounds)

	if kind == PastNotFound {
		status := constants.StatusNotFound
		err := repos.Matches.UpsertMatch(wctx, domain.Match{
			MatchID:        summary.MatchID,
			ChampionshipID: champ.ChampionshipID,
			Status:         &status,
			LastSeenAt:     now,
		})
		if err != nil {
			return domain.OutcomeFailed, err
		}
		return domain.OutcomeNotFound, nil
	}

	pair := DeriveTeamIDs(details, rounds)
	team1, team2 := sidesForPair(details, summary, pair)
	if err := s.writeSides(wctx, repos, now, team1, team2); err != nil {
		return domain.OutcomeFailed, err
	}
	if err := repos.Matches.UpsertMatch(wctx, HeaderFromDetails(details, summary, champ.ChampionshipID, pair, now)); err != nil {
		return domain.OutcomeFailed, err
	}

	var history *api.DemocracyHistory
	if kind == PastPlayed {
		history, err = s.source.GetDemocracyHistory(ctx, summary.MatchID)
		if err != nil {
			return domain.OutcomeFailed, fmt.Errorf("democracy history: %w", err)
		}
	}

	var maps []domain.MapRow
	if kind == PastForfeit {
		maps = ForfeitMapRows(summary.MatchID, details, pair)
		s.logger.Info().Str("match_id", summary.MatchID).Int("maps", len(maps)).Msg("forfeit, writing synthetic map rows")
	} else {
		maps = PlayedMapRows(summary.MatchID, rounds, details, history, pair)
	}
	if err := repos.Matches.UpsertMaps(wctx, maps); err != nil {
		return domain.OutcomeFailed, err
	}

	// an empty veto history clears whatever an earlier sync stored
	if err := repos.Matches.ReplaceVotes(wctx, summary.MatchID, VotesFromDemocracy(summary.MatchID, history, pair)); err != nil {
		return domain.OutcomeFailed, err
	}

	playerRows := PlayerStatRows(summary.MatchID, rounds, pair)
	if err := repos.Players.UpsertBatch(wctx, UniquePlayers(playerRows, now)); err != nil {
		return domain.OutcomeFailed, err
	}
	if err := repos.Stats.UpsertPlayerStats(wctx, playerRows); err != nil {
		return domain.OutcomeFailed, err
	}
	if err := repos.Stats.UpsertTeamStats(wctx, TeamStatRows(summary.MatchID, rounds, pair)); err != nil {
		return domain.OutcomeFailed, err
	}
	return domain.OutcomePastFull, nil
}

func (s *Syncer) writeSides(ctx context.Context, repos *repository.Repositories, now int64, sides ...domain.TeamSide) error {
	for _, side := range sides {
		if side.TeamID == "" {
			continue
		}
		if err := repos.Teams.Upsert(ctx, domain.Team{TeamID: side.TeamID, Name: side.Name, Avatar: side.Avatar, UpdatedAt: now}); err != nil {
			return err
		}
		roster := make([]domain.Player, 0, len(side.Roster))
		for _, p := range side.Roster {
			p.UpdatedAt = now
			roster = append(roster, p)
		}
		if err := repos.Players.UpsertBatch(ctx, roster); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) logProgress(log zerolog.Logger, started time.Time, done, total int) {
	elapsed := s.now().Sub(started)
	rate := float64(done) / elapsed.Seconds()
	var eta time.Duration
	if rate > 0 {
		eta = time.Duration(float64(total-done) / rate * float64(time.Second))
	}
	log.Info().
		Int("done", done).
		Int("total", total).
		Float64("per_sec", rate).
		Dur("eta", eta.Round(time.Second)).
		Msg("sync progress")
}

// sidesForPair orients the detail factions onto the resolved team pair.
func sidesForPair(details *api.Match, summary domain.MatchSummary, pair TeamPair) (domain.TeamSide, domain.TeamSide) {
	sides := []domain.TeamSide{summary.Team1, summary.Team2}
	if details != nil {
		sides = append(sides, sideFromFaction(details.Teams.Faction1), sideFromFaction(details.Teams.Faction2))
	}
	pick := func(id string) domain.TeamSide {
		out := domain.TeamSide{TeamID: id}
		for _, s := range sides {
			if s.TeamID != id {
				continue
			}
			if out.Name == "" {
				out.Name = s.Name
			}
			if out.Avatar == "" {
				out.Avatar = s.Avatar
			}
			if len(out.Roster) == 0 {
				out.Roster = s.Roster
			}
		}
		return out
	}
	return pick(pair.Team1), pick(pair.Team2)
}

func championshipFromDivision(div config.Division) domain.Championship {
	game := div.Game
	if game == "" {
		game = constants.DefaultGame
	}
	return domain.Championship{
		ChampionshipID: div.ChampionshipID,
		Season:         div.Season,
		DivisionNum:    div.DivisionNum,
		Name:           div.Name,
		Slug:           div.Slug,
		IsPlayoffs:     div.Playoffs(),
		Game:           game,
	}
}

// HeaderFromSummary is the header of a match that has not been played yet.
func HeaderFromSummary(s domain.MatchSummary, championshipID string, now int64) domain.Match {
	return domain.Match{
		MatchID:         s.MatchID,
		ChampionshipID:  championshipID,
		CompetitionName: s.CompetitionName,
		Game:            s.Game,
		Round:           s.Round,
		BestOf:          s.BestOf,
		ConfiguredAt:    s.ConfiguredAt,
		ScheduledAt:     s.ScheduledAt,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		Status:          strPtr(s.Status),
		Team1ID:         strPtr(s.Team1.TeamID),
		Team2ID:         strPtr(s.Team2.TeamID),
		LastSeenAt:      now,
	}
}

// HeaderFromDetails prefers detail fields and falls back to the listing.
func HeaderFromDetails(d *api.Match, s domain.MatchSummary, championshipID string, pair TeamPair, now int64) domain.Match {
	m := HeaderFromSummary(s, championshipID, now)
	if d == nil {
		return m
	}
	m.CompetitionName = orStr(d.CompetitionName.Ptr(), m.CompetitionName)
	m.Game = orStr(strPtr(string(d.Game)), m.Game)
	m.Round = orInt(d.Round.Ptr(), m.Round)
	m.BestOf = orInt(d.BestOf.Ptr(), m.BestOf)
	m.ConfiguredAt = orInt(d.ConfiguredAt.Ptr(), m.ConfiguredAt)
	m.ScheduledAt = orInt(d.ScheduledAt.Ptr(), m.ScheduledAt)
	m.StartedAt = orInt(d.StartedAt.Ptr(), m.StartedAt)
	m.FinishedAt = orInt(d.FinishedAt.Ptr(), m.FinishedAt)
	m.Status = orStr(strPtr(d.StatusLower()), m.Status)
	m.Team1ID = orStr(strPtr(pair.Team1), m.Team1ID)
	m.Team2ID = orStr(strPtr(pair.Team2), m.Team2ID)
	m.WinnerTeamID = strPtr(ResolveTeamRef(d.WinnerRef(), pair))
	return m
}

func orStr(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

func orInt(a, b *int64) *int64 {
	if a != nil {
		return a
	}
	return b
}
