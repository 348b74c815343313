package controllers

import (
	"context"
	"fmt"
	"time"

	"Tourney/api/cache"
)

const cacheTTL = 60 * time.Second

func matchListCacheKey(tournamentID uint, round int) string {
	return fmt.Sprintf("matches:%d:%d", tournamentID, round)
}

func invalidateMatchListCache(tournamentID uint) {
	if tournamentID == 0 {
		return
	}
	_ = cache.DeleteByPrefix(context.Background(), fmt.Sprintf("matches:%d:", tournamentID))
}

func invalidateTournamentCache(tournamentID uint) {
	if tournamentID == 0 {
		return
	}
	_ = cache.Delete(context.Background(), fmt.Sprintf("tournament:%d", tournamentID))
}
