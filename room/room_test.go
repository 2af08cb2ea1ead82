package room

import (
	"sync"
	"testing"

	"github.com/wfunc/treasurehunt/session"
)

func newTestManager() *Manager {
	return NewManager(Settings{TimeLimit: 120, TreasureRadius: 50})
}

// makeRoom creates a room with the given extra players joined after the host.
func makeRoom(t *testing.T, m *Manager, maxPlayers int, hostName string, joiners ...string) (*Room, *Player, []*Player) {
	t.Helper()

	r, host, err := m.CreateRoom("Test Room", maxPlayers, hostName, "knight")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	players := make([]*Player, 0, len(joiners))
	for _, name := range joiners {
		p, err := m.JoinRoom(r.ID, name, "wizard")
		if err != nil {
			t.Fatalf("JoinRoom(%s) failed: %v", name, err)
		}
		players = append(players, p)
	}
	return r, host, players
}

func TestManager_CreateRoom(t *testing.T) {
	m := newTestManager()

	r, host, err := m.CreateRoom("Ava's Room", 4, "Ava", "knight")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if len(r.ID) != 6 {
		t.Errorf("Expected a 6 character room code, got %q", r.ID)
	}
	if r.PlayerCount() != 1 {
		t.Errorf("Expected 1 player in a fresh room, got %d", r.PlayerCount())
	}
	if !host.IsHost {
		t.Error("Creator should be marked as host")
	}
	if r.HostID() != host.ID {
		t.Errorf("hostId should equal the creator's id, got %q vs %q", r.HostID(), host.ID)
	}

	got, exists := m.GetRoom(r.ID)
	if !exists || got != r {
		t.Error("GetRoom should return the created room instance")
	}
}

func TestManager_CreateRoom_UniqueCodes(t *testing.T) {
	m := newTestManager()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		r, _, err := m.CreateRoom("Room", 4, "Host", "knight")
		if err != nil {
			t.Fatal(err)
		}
		if seen[r.ID] {
			t.Fatalf("Duplicate room code among live rooms: %q", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestManager_CreateRoom_InvalidMaxPlayers(t *testing.T) {
	m := newTestManager()
	for _, n := range []int{0, 1, 7, -3} {
		if _, _, err := m.CreateRoom("Room", n, "Host", "knight"); err != ErrInvalidMaxPlayers {
			t.Errorf("maxPlayers=%d: expected ErrInvalidMaxPlayers, got %v", n, err)
		}
	}
}

func TestManager_JoinRoom_Full(t *testing.T) {
	m := newTestManager()
	r, _, _ := makeRoom(t, m, 2, "Ava", "Bo")

	if _, err := m.JoinRoom(r.ID, "Cy", "rogue"); err != ErrRoomFull {
		t.Fatalf("Expected ErrRoomFull, got %v", err)
	}
	if r.PlayerCount() != 2 {
		t.Errorf("Room should still hold 2 players, got %d", r.PlayerCount())
	}
}

func TestManager_JoinRoom_AfterStart(t *testing.T) {
	m := newTestManager()
	r, host, _ := makeRoom(t, m, 4, "Ava", "Bo")

	if err := m.StartGame(r.ID, host.ID); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	// 满员与否无关：开局后一律拒绝加入
	if _, err := m.JoinRoom(r.ID, "Cy", "rogue"); err != ErrGameAlreadyStarted {
		t.Fatalf("Expected ErrGameAlreadyStarted, got %v", err)
	}
}

func TestManager_JoinRoom_NotFound(t *testing.T) {
	m := newTestManager()
	if _, err := m.JoinRoom("ZZZZZZ", "Bo", "wizard"); err != ErrRoomNotFound {
		t.Fatalf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestManager_LeaveRoom_HostMigration(t *testing.T) {
	m := newTestManager()
	r, host, joiners := makeRoom(t, m, 4, "Ava", "Bo", "Cy")

	if !m.LeaveRoom(r.ID, host.ID) {
		t.Fatal("Host should have been removed")
	}

	// 新房主必须是按加入顺序最早的剩余玩家
	snap := r.Snapshot()
	if snap.HostID != joiners[0].ID {
		t.Errorf("Expected Bo to become host, got host id %q", snap.HostID)
	}
	if !snap.Players[0].IsHost {
		t.Error("New host should carry the isHost flag")
	}
	hostCount := 0
	for _, p := range snap.Players {
		if p.IsHost {
			hostCount++
		}
	}
	if hostCount != 1 {
		t.Errorf("Exactly one player must be host, found %d", hostCount)
	}
}

func TestManager_LeaveRoom_LastPlayerDestroysRoom(t *testing.T) {
	m := newTestManager()
	r, host, _ := makeRoom(t, m, 4, "Ava")

	m.LeaveRoom(r.ID, host.ID)

	if _, exists := m.GetRoom(r.ID); exists {
		t.Fatal("Room should be destroyed when the last player leaves")
	}
	if m.Count() != 0 {
		t.Errorf("Expected 0 live rooms, got %d", m.Count())
	}
}

func TestManager_LeaveRoom_AbsentPlayerIsNoop(t *testing.T) {
	m := newTestManager()
	r, _, _ := makeRoom(t, m, 4, "Ava", "Bo")

	if m.LeaveRoom(r.ID, "ghost") {
		t.Error("Removing an absent player should report false")
	}
	if r.PlayerCount() != 2 {
		t.Errorf("Player count should be unchanged, got %d", r.PlayerCount())
	}
}

func TestManager_UpdateCharacter(t *testing.T) {
	m := newTestManager()
	r, host, _ := makeRoom(t, m, 4, "Ava")

	if err := m.UpdateCharacter(r.ID, host.ID, "pirate"); err != nil {
		t.Fatalf("UpdateCharacter failed: %v", err)
	}
	if got := r.Snapshot().Players[0].Character; got != "pirate" {
		t.Errorf("Expected character %q, got %q", "pirate", got)
	}

	if err := m.UpdateCharacter(r.ID, "ghost", "pirate"); err != session.ErrPlayerNotFound {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
	if err := m.UpdateCharacter("ZZZZZZ", host.ID, "pirate"); err != ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestManager_UpdateCharacter_DuringSession(t *testing.T) {
	m := newTestManager()
	r, host, _ := makeRoom(t, m, 4, "Ava")

	if err := m.StartGame(r.ID, host.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateCharacter(r.ID, host.ID, "pirate"); err != nil {
		t.Fatalf("Character change should be legal mid-session: %v", err)
	}

	snap := r.Snapshot()
	if snap.GameState.Players[0].Character != "pirate" {
		t.Error("Session player should reflect the character change")
	}
}

func TestManager_StartGame(t *testing.T) {
	m := newTestManager()
	r, host, joiners := makeRoom(t, m, 3, "Ava", "Bo", "Cy")

	// 非房主不能开局
	if err := m.StartGame(r.ID, joiners[0].ID); err != ErrNotHost {
		t.Fatalf("Expected ErrNotHost, got %v", err)
	}

	if err := m.StartGame(r.ID, host.ID); err != nil {
		t.Fatalf("StartGame by host failed: %v", err)
	}
	if !r.Started() {
		t.Fatal("Room should be marked started")
	}

	snap := r.Snapshot()
	if snap.GameState == nil {
		t.Fatal("Started room should expose a game state")
	}
	if len(snap.GameState.Players) != 3 {
		t.Fatalf("Expected 3 session players, got %d", len(snap.GameState.Players))
	}
	if snap.GameState.TimeLeft != 120 {
		t.Errorf("Expected configured time limit 120, got %d", snap.GameState.TimeLeft)
	}
	if snap.GameState.GameWon || snap.GameState.GameLost {
		t.Error("Fresh session should not be terminal")
	}

	seenX := make(map[float64]bool)
	for _, p := range snap.GameState.Players {
		if seenX[p.X] {
			t.Errorf("Session players should spawn at distinct x, duplicate %v", p.X)
		}
		seenX[p.X] = true
	}

	// 重复开局是有意的单次操作
	if err := m.StartGame(r.ID, host.ID); err != ErrGameAlreadyStarted {
		t.Fatalf("Second start should fail with ErrGameAlreadyStarted, got %v", err)
	}
}

func TestManager_SessionOps_RequireActiveSession(t *testing.T) {
	m := newTestManager()
	r, host, _ := makeRoom(t, m, 4, "Ava")

	if err := m.UpdatePosition(r.ID, host.ID, 1, 2, session.DirectionLeft, true, false); err != ErrNoActiveSession {
		t.Errorf("UpdatePosition: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := m.CollectCoin(r.ID, "coin1", host.ID); err != ErrNoActiveSession {
		t.Errorf("CollectCoin: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := m.CheckTreasureWin(r.ID, host.ID); err != ErrNoActiveSession {
		t.Errorf("CheckTreasureWin: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := m.Tick(r.ID); err != ErrNoActiveSession {
		t.Errorf("Tick: expected ErrNoActiveSession, got %v", err)
	}
}

func TestManager_SessionOps_RoomNotFound(t *testing.T) {
	m := newTestManager()

	if err := m.UpdatePosition("ZZZZZZ", "p", 0, 0, session.DirectionLeft, false, false); err != ErrRoomNotFound {
		t.Errorf("UpdatePosition: expected ErrRoomNotFound, got %v", err)
	}
	if _, err := m.Tick("ZZZZZZ"); err != ErrRoomNotFound {
		t.Errorf("Tick: expected ErrRoomNotFound, got %v", err)
	}
}

func TestManager_FullScenario(t *testing.T) {
	m := newTestManager()
	r, host, joiners := makeRoom(t, m, 3, "Ava", "Bo", "Cy")
	bo, cy := joiners[0], joiners[1]

	if err := m.StartGame(r.ID, host.ID); err != nil {
		t.Fatal(err)
	}

	// Bo 先抢到 coin1，Cy 再领必须失败且不影响任何计数
	collected, err := m.CollectCoin(r.ID, "coin1", bo.ID)
	if err != nil || !collected {
		t.Fatalf("First collect should succeed, got collected=%v err=%v", collected, err)
	}
	collected, err = m.CollectCoin(r.ID, "coin1", cy.ID)
	if err != nil || collected {
		t.Fatalf("Second collect should return false, got collected=%v err=%v", collected, err)
	}

	snap := r.Snapshot()
	wantCoins := map[string]int{host.ID: 0, bo.ID: 1, cy.ID: 0}
	for _, p := range snap.GameState.Players {
		if p.Coins != wantCoins[p.ID] {
			t.Errorf("Player %s: expected %d coins, got %d", p.Name, wantCoins[p.ID], p.Coins)
		}
	}
}

func TestManager_ConcurrentCoinCollection(t *testing.T) {
	m := newTestManager()
	r, host, joiners := makeRoom(t, m, 6, "Ava", "Bo", "Cy", "Di", "Ed")

	if err := m.StartGame(r.ID, host.ID); err != nil {
		t.Fatal(err)
	}

	ids := []string{host.ID}
	for _, p := range joiners {
		ids = append(ids, p.ID)
	}

	var wg sync.WaitGroup
	wins := make(chan string, len(ids)*4)
	for _, id := range ids {
		for n := 0; n < 4; n++ {
			wg.Add(1)
			go func(playerID string) {
				defer wg.Done()
				ok, err := m.CollectCoin(r.ID, "coin3", playerID)
				if err != nil {
					t.Errorf("CollectCoin errored: %v", err)
					return
				}
				if ok {
					wins <- playerID
				}
			}(id)
		}
	}
	wg.Wait()
	close(wins)

	var winners []string
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("Exactly one concurrent collect must win, got %d", len(winners))
	}

	total := 0
	for _, p := range r.Snapshot().GameState.Players {
		total += p.Coins
	}
	if total != 1 {
		t.Fatalf("Exactly one coin must be credited overall, got %d", total)
	}
}

func TestManager_ConcurrentPositionUpdates(t *testing.T) {
	m := newTestManager()
	r, host, _ := makeRoom(t, m, 4, "Ava", "Bo")

	if err := m.StartGame(r.ID, host.ID); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := m.UpdatePosition(r.ID, host.ID, float64(n), float64(n), session.DirectionRight, true, false); err != nil {
				t.Errorf("UpdatePosition errored: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// last-write-wins：终值必须是其中某一次写入
	snap := r.Snapshot()
	x := snap.GameState.Players[0].X
	if x < 0 || x > 49 || snap.GameState.Players[0].Y != x {
		t.Errorf("Final position should be one of the submitted writes, got (%v, %v)", x, snap.GameState.Players[0].Y)
	}
}
