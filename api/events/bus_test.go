package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"Tourney/api/progression"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesSubscriber(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus, err := NewBus(logger)
	require.NoError(t, err)

	type received struct {
		payload       TieResolvedPayload
		correlationID string
	}
	got := make(chan received, 1)
	bus.Subscribe("test.tie_resolved", TieResolvedV1, func(msg *message.Message) error {
		p, err := DecodeTieResolved(msg)
		if err != nil {
			return err
		}
		got <- received{payload: p, correlationID: middleware.MessageCorrelationID(msg)}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()
	defer bus.Close()

	select {
	case <-bus.Running():
	case <-time.After(2 * time.Second):
		t.Fatal("bus did not start")
	}

	want := TieResolvedPayload{
		TournamentID: 3,
		MatchID:      41,
		Resolution: progression.Resolution{
			WinnerParticipantID: 10,
			LoserParticipantID:  11,
			Target:              progression.Slot{Round: 2, Index: 1, Side: progression.Away},
			DecidedBy:           progression.DecidedByAggregate,
			WinnerGoals:         4,
			LoserGoals:          1,
		},
		TargetMatchIDs: []uint{50, 51},
	}
	require.NoError(t, bus.Publish(WithCorrelationID(context.Background(), "corr-1"), TieResolvedV1, want))

	select {
	case r := <-got:
		assert.Equal(t, want, r.payload)
		assert.Equal(t, "corr-1", r.correlationID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestCorrelationID_Empty(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
}
