// services/record_service.go
package services

import (
	"time"

	"github.com/wfunc/treasurehunt/logger"
	"github.com/wfunc/treasurehunt/models"
	"github.com/wfunc/treasurehunt/persistence"
	"github.com/wfunc/treasurehunt/room"
)

// RecordService 在会话到达终态时把战绩写入存档
type RecordService struct {
	store     persistence.Store
	timeLimit int
}

func NewRecordService(store persistence.Store, timeLimit int) *RecordService {
	return &RecordService{store: store, timeLimit: timeLimit}
}

// BuildRecord 从终态房间快照组装战绩
func (s *RecordService) BuildRecord(snap *room.Snapshot) *models.MatchRecord {
	if snap == nil || snap.GameState == nil {
		return nil
	}

	outcome := models.OutcomeLost
	if snap.GameState.GameWon {
		outcome = models.OutcomeWon
	}

	players := make([]models.MatchPlayer, 0, len(snap.GameState.Players))
	for _, p := range snap.GameState.Players {
		players = append(players, models.MatchPlayer{
			PlayerID:  p.ID,
			Name:      p.Name,
			Character: p.Character,
			Coins:     p.Coins,
		})
	}

	return &models.MatchRecord{
		RoomID:    snap.ID,
		RoomName:  snap.Name,
		Outcome:   outcome,
		TimeUsed:  s.timeLimit - snap.GameState.TimeLeft,
		Players:   players,
		CreatedAt: time.Now(),
	}
}

// SaveFinished builds and persists the record for a terminal room.
// Archiving is best effort: a storage failure is logged, never
// surfaced to gameplay.
func (s *RecordService) SaveFinished(snap *room.Snapshot) {
	record := s.BuildRecord(snap)
	if record == nil {
		return
	}
	if err := s.store.SaveMatchRecord(record); err != nil {
		logger.Log.Errorf("Failed to archive match record for room %s: %v", record.RoomID, err)
	}
}
