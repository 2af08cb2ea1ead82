package services

import (
	"os"
	"testing"

	"github.com/wfunc/treasurehunt/logger"
	"github.com/wfunc/treasurehunt/models"
	"github.com/wfunc/treasurehunt/persistence"
	"github.com/wfunc/treasurehunt/room"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// capturingStore records every saved match record.
type capturingStore struct {
	saved []*models.MatchRecord
}

func (s *capturingStore) SaveMatchRecord(record *models.MatchRecord) error {
	s.saved = append(s.saved, record)
	return nil
}
func (s *capturingStore) Close() error { return nil }

func finishedRoom(t *testing.T) *room.Snapshot {
	t.Helper()

	m := room.NewManager(room.Settings{TimeLimit: 2, TreasureRadius: 50})
	r, host, err := m.CreateRoom("Record Room", 4, "Ava", "knight")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.StartGame(r.ID, host.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CollectCoin(r.ID, "coin1", host.ID); err != nil {
		t.Fatal(err)
	}
	// 倒计时耗尽 → lost
	if _, err := m.Tick(r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Tick(r.ID); err != nil {
		t.Fatal(err)
	}
	return r.Snapshot()
}

func TestRecordService_BuildRecord(t *testing.T) {
	svc := NewRecordService(&capturingStore{}, 2)
	record := svc.BuildRecord(finishedRoom(t))

	if record == nil {
		t.Fatal("BuildRecord should produce a record for a finished room")
	}
	if record.Outcome != models.OutcomeLost {
		t.Errorf("Expected outcome %q, got %q", models.OutcomeLost, record.Outcome)
	}
	if record.TimeUsed != 2 {
		t.Errorf("Expected 2 seconds used, got %d", record.TimeUsed)
	}
	if len(record.Players) != 1 || record.Players[0].Coins != 1 {
		t.Errorf("Player stats not carried into the record: %+v", record.Players)
	}
}

func TestRecordService_BuildRecord_LobbyRoomIsNil(t *testing.T) {
	m := room.NewManager(room.Settings{})
	r, _, err := m.CreateRoom("Lobby", 4, "Ava", "knight")
	if err != nil {
		t.Fatal(err)
	}

	svc := NewRecordService(&capturingStore{}, 120)
	if svc.BuildRecord(r.Snapshot()) != nil {
		t.Fatal("A room without a session has nothing to archive")
	}
	if svc.BuildRecord(nil) != nil {
		t.Fatal("A nil snapshot has nothing to archive")
	}
}

func TestRecordService_SaveFinished(t *testing.T) {
	store := &capturingStore{}
	svc := NewRecordService(store, 2)

	svc.SaveFinished(finishedRoom(t))

	if len(store.saved) != 1 {
		t.Fatalf("Expected 1 archived record, got %d", len(store.saved))
	}
	if store.saved[0].RoomName != "Record Room" {
		t.Errorf("Unexpected room name %q", store.saved[0].RoomName)
	}
}

func TestRecordService_NoopStore(t *testing.T) {
	svc := NewRecordService(persistence.NoopStore{}, 2)
	// 禁用存档时调用不应当出错或崩溃
	svc.SaveFinished(finishedRoom(t))
}
