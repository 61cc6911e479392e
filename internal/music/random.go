package music

import (
	"context"
	"fmt"
)

// drawFromHistoryLocked picks one uniformly random record from the play
// history and resolves it. Records that no longer resolve are skipped and a
// different one is drawn, without replacement, until one succeeds or the
// history is exhausted. A backend failure or a dead source aborts right away.
func (s *Session) drawFromHistoryLocked(ctx context.Context, requester *Requester, kind ItemKind) (QueuedItem, error) {
	if s.history == nil {
		return QueuedItem{}, ErrHistoryEmpty
	}
	records, err := s.history.ListAll(ctx)
	if err != nil {
		return QueuedItem{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
	}
	if len(records) == 0 {
		return QueuedItem{}, ErrHistoryEmpty
	}

	for _, i := range s.rng.Perm(len(records)) {
		rec := records[i]
		res, err := s.backend.Resolve(ctx, rec.URL)
		if err != nil {
			return QueuedItem{}, fmt.Errorf("%w: %v", ErrBackendDown, err)
		}
		switch res.Status {
		case ResolveSuccess:
			return newQueuedItem(res.Track, 0, 0, requester, kind), nil
		case ResolveLoadFailed:
			return QueuedItem{}, ErrLoadFailed
		}
		s.log.Debug().Str("url", rec.URL).Msg("history record no longer resolves, drawing again")
	}
	return QueuedItem{}, ErrNoMatch
}

// refillFromHistoryLocked keeps endless shuffle alive: it draws a history
// track, starts it and records the play against the bot identity. Failures
// drop the session to idle rather than looping.
func (s *Session) refillFromHistoryLocked(ctx context.Context) {
	item, err := s.drawFromHistoryLocked(ctx, &s.botIdentity, KindShuffle)
	if err != nil {
		s.log.Warn().Err(err).Msg("endless shuffle refill failed, going idle")
		if s.presence != nil {
			s.presence.SetAmbient()
		}
		return
	}
	if err := s.backend.Play(ctx, s.guildID, item); err != nil {
		s.log.Error().Err(err).Str("title", item.Track.Title).Msg("endless shuffle play failed, going idle")
		if s.presence != nil {
			s.presence.SetAmbient()
		}
		return
	}
	s.nowPlaying = &item
	s.playing = true
	s.recordPlay(ctx, item)
	s.log.Info().Str("title", item.Track.Title).Str("author", item.Track.Author).Msg("endless shuffle queued next track")
}
