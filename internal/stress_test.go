package internal_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-tic-tac-toe/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeJoined 解出 joined 回覆的載荷
func decodeJoined(t *testing.T, payload any) (roomID, shortRoomID string) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var joined struct {
		RoomID      string `json:"roomId"`
		ShortRoomID string `json:"shortRoomId"`
	}
	require.NoError(t, json.Unmarshal(raw, &joined))
	return joined.RoomID, joined.ShortRoomID
}

// TestStress_ConcurrentRoomCreation 測試併發創建房間
func TestStress_ConcurrentRoomCreation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	coordinator, registry, transport := newTestCoordinator(t)

	const (
		numGoroutines     = 50
		roomsPerGoroutine = 10
	)

	var (
		wg           sync.WaitGroup
		successCount int32
	)

	start := time.Now()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			for j := 0; j < roomsPerGoroutine; j++ {
				connID := fmt.Sprintf("conn-%d-%d", goroutineID, j)
				coordinator.CreateRoom(connID)
				atomic.AddInt32(&successCount, 1)
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)

	t.Logf("創建房間壓力測試結果:")
	t.Logf("  總房間數: %d", numGoroutines*roomsPerGoroutine)
	t.Logf("  成功: %d", successCount)
	t.Logf("  耗時: %v", duration)
	t.Logf("  速率: %.2f rooms/sec", float64(successCount)/duration.Seconds())

	require.Equal(t, numGoroutines*roomsPerGoroutine, registry.Count())

	// 每個連線都收到 joined 回覆，且加入碼不重複
	joined := transport.eventsOf(internal.EventJoined)
	require.Len(t, joined, numGoroutines*roomsPerGoroutine)

	seen := make(map[string]bool)
	for _, msg := range joined {
		_, shortRoomID := decodeJoined(t, msg.Payload)
		assert.False(t, seen[shortRoomID], "加入碼重複: %s", shortRoomID)
		seen[shortRoomID] = true
	}
}

// TestStress_ConcurrentGames 測試多場對局並行進行
func TestStress_ConcurrentGames(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping stress test in short mode")
	}

	coordinator, registry, transport := newTestCoordinator(t)

	const numGames = 40

	// 先循序建房配對（需要讀取 joined 回覆取得房間識別碼）
	type game struct {
		roomID  string
		player1 string
		player2 string
	}
	games := make([]game, 0, numGames)

	for i := 0; i < numGames; i++ {
		g := game{
			player1: fmt.Sprintf("p1-%d", i),
			player2: fmt.Sprintf("p2-%d", i),
		}
		coordinator.CreateRoom(g.player1)

		msg, found := transport.lastReplyTo(g.player1)
		require.True(t, found)
		roomID, shortRoomID := decodeJoined(t, msg.Payload)
		g.roomID = roomID

		coordinator.JoinRoom(g.player2, shortRoomID)
		games = append(games, g)
	}
	require.Equal(t, numGames, registry.Count())

	// 所有對局並行走 X 獲勝路徑：0,4 → 1,5 → 2
	var wg sync.WaitGroup
	for _, g := range games {
		wg.Add(1)
		go func(g game) {
			defer wg.Done()

			coordinator.Move(g.player1, g.roomID, 0, internal.SymbolX)
			coordinator.Move(g.player2, g.roomID, 4, internal.SymbolO)
			coordinator.Move(g.player1, g.roomID, 1, internal.SymbolX)
			coordinator.Move(g.player2, g.roomID, 5, internal.SymbolO)
			coordinator.Move(g.player1, g.roomID, 2, internal.SymbolX)
		}(g)
	}
	wg.Wait()

	// 每場對局的最後一次廣播都宣告 X 獲勝
	perRoom := make(map[string][]sentMessage)
	for _, msg := range transport.eventsOf(internal.EventMove) {
		perRoom[msg.Target] = append(perRoom[msg.Target], msg)
	}

	for _, g := range games {
		broadcasts := perRoom[g.roomID]
		require.Len(t, broadcasts, 5, "房間 %s 廣播次數", g.roomID)

		raw, err := json.Marshal(broadcasts[4].Payload)
		require.NoError(t, err)

		var state struct {
			Winner *string `json:"winner"`
		}
		require.NoError(t, json.Unmarshal(raw, &state))
		require.NotNil(t, state.Winner, "房間 %s 未分勝負", g.roomID)
		assert.Equal(t, internal.SymbolX, *state.Winner)

		room, found := registry.GetByInternalID(g.roomID)
		require.True(t, found)
		assert.Equal(t, internal.StatusFinished, room.StatusSnapshot())
	}
}
