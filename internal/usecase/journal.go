package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/surakarta/internal/entity"
)

type matchRecorder interface {
	CreateOrUpdate(ctx context.Context, match *entity.Match) error
}

type discardMatches struct{}

func (discardMatches) CreateOrUpdate(context.Context, *entity.Match) error {
	return nil
}

// record journals the game that just ended. The write runs off the actor and failures are only logged.
func (that *GameSession) record(result string, winner entity.Side) {
	if that.opponent == nil {
		return
	}

	match := &entity.Match{
		ID:         uuid.NewString(),
		LocalSide:  that.localSide,
		Opponent:   that.opponent.String(),
		Winner:     winner,
		Result:     result,
		StartedAt:  that.startedAt,
		FinishedAt: time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), that.journalTimeout)
		defer cancel()

		if err := that.matches.CreateOrUpdate(ctx, match); err != nil {
			that.logger.Error("failed to journal match", "match", match.ID, "error", err)
		}
	}()
}
