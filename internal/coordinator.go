package internal

import (
	"log/slog"
	"sync"
)

// 系統設計問題：
//   配對與對局的所有狀態轉換集中在哪裡執行，才能避免並發競態？
//
// 核心挑戰：
//   1. 並發加入：兩位玩家同時 join 同一房間，只能有一位成為 O
//   2. 過期請求：玩家離開後，殘留的 move/reset 不能改動任何狀態
//   3. 廣播順序：同一房間的廣播必須與請求處理順序一致
//
// 設計方案：
//   ✅ 單一互斥鎖串行化 - 每個請求「讀取 → 驗證 → 改動 → 發送」
//     一氣呵成，下一個請求才會開始，房間欄位不存在競態
//   ✅ 傳輸埠介面 - 協調器不依賴具體傳輸，測試用錄製假件替換

// 對外事件名稱
const (
	// 入站
	EventCreateRoom = "create-room"
	EventJoinRoom   = "join-room"
	EventMove       = "move"
	EventReset      = "reset"
	EventLeave      = "leave"

	// 出站
	EventJoined       = "joined"
	EventPlayerJoined = "player-joined"
	EventError        = "error"
	EventLeft         = "left"
	EventOpponentLeft = "opponent-left"
)

// Transport 傳輸埠
//
// 抽象底層的發佈/訂閱原語：連線級的直接回覆、
// 房間群組的加入/退出、以及對群組的廣播。
// 群組位址即房間的 InternalID。
type Transport interface {
	Reply(connID, event string, payload any)
	Broadcast(groupID, event string, payload any)
	JoinGroup(connID, groupID string)
	LeaveGroup(connID, groupID string)
}

// 出站訊息載荷
type joinedPayload struct {
	RoomID        string `json:"roomId"` // 傳輸群組位址（InternalID）
	ShortRoomID   string `json:"shortRoomId"`
	Symbol        string `json:"symbol"`
	IsFirstPlayer bool   `json:"isFirstPlayer"`
}

type playerJoinedPayload struct {
	Symbol string `json:"symbol"`
}

type movePayload struct {
	Board         [BoardSize]string `json:"board"`
	CurrentPlayer string            `json:"currentPlayer"`
	Winner        *string           `json:"winner"` // nil 表示對局繼續
}

// Coordinator 配對協調器
//
// 實作完整的房間狀態機：create、join、move、reset、leave、disconnect。
// 透過 Registry 讀寫房間、透過 Transport 發送結果。
type Coordinator struct {
	registry  *Registry
	transport Transport
	logger    *slog.Logger

	// 串行化所有請求處理（見檔頭說明）
	mu sync.Mutex
}

// NewCoordinator 創建配對協調器
func NewCoordinator(registry *Registry, transport Transport, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		registry:  registry,
		transport: transport,
		logger:    logger,
	}
}

// CreateRoom 創建房間
//
// 發起者成為唯一玩家（持 X），並加入房間的傳輸群組。
func (c *Coordinator) CreateRoom(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := c.registry.Create()
	symbol, err := room.AddPlayer(connID)
	if err != nil {
		// 新房間不可能加入失敗，防禦性處理
		c.registry.Delete(room.ShortID)
		c.fail(connID, err)
		return
	}

	c.transport.JoinGroup(connID, room.InternalID)
	c.transport.Reply(connID, EventJoined, joinedPayload{
		RoomID:        room.InternalID,
		ShortRoomID:   room.ShortID,
		Symbol:        symbol,
		IsFirstPlayer: true,
	})

	c.logger.Info("玩家創建房間",
		"conn_id", connID,
		"short_id", room.ShortID)
}

// JoinRoom 以加入碼加入房間
//
// 加入碼不分大小寫（去空白、轉大寫後比對）。
// 成功後房間轉為 playing，並向群組廣播 player-joined。
func (c *Coordinator) JoinRoom(connID, shortID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code := NormalizeShortID(shortID)
	if code == "" {
		c.fail(connID, newGameError(CodeInvalidInput, "房間編號不能為空"))
		return
	}

	room, exists := c.registry.Get(code)
	if !exists {
		c.fail(connID, newGameError(CodeNotFound, "房間不存在: %s", code))
		return
	}

	symbol, err := room.AddPlayer(connID)
	if err != nil {
		c.fail(connID, err)
		return
	}

	c.transport.JoinGroup(connID, room.InternalID)
	c.transport.Reply(connID, EventJoined, joinedPayload{
		RoomID:        room.InternalID,
		ShortRoomID:   room.ShortID,
		Symbol:        symbol,
		IsFirstPlayer: false,
	})
	// 通知群組：持 X 的房主已有對手
	c.transport.Broadcast(room.InternalID, EventPlayerJoined, playerJoinedPayload{Symbol: SymbolX})

	c.logger.Info("玩家加入房間",
		"conn_id", connID,
		"short_id", room.ShortID)
}

// Move 落子
//
// 客戶端以 join 時取得的 InternalID 定位房間，而非加入碼。
// 驗證失敗只回覆發起者；成功則向群組廣播最新棋局狀態。
func (c *Coordinator) Move(connID, internalID string, index int, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.lookup(connID, internalID)
	if !ok {
		return
	}

	// 擋下過期請求：已離開（或從未進房）的連線不能落子
	if !room.HasPlayer(connID) {
		c.fail(connID, newGameError(CodeNotFound, "玩家不在房間內"))
		return
	}

	outcome, err := room.ApplyMove(index, symbol)
	if err != nil {
		c.fail(connID, err)
		return
	}

	c.broadcastState(room, outcome)

	if outcome != OutcomeNone {
		c.logger.Info("對局結束",
			"short_id", room.ShortID,
			"outcome", string(outcome))
	}
}

// Reset 重新開局
//
// 清空棋盤、輪替先手，向群組廣播歸零後的棋局狀態。
func (c *Coordinator) Reset(connID, internalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.lookup(connID, internalID)
	if !ok {
		return
	}

	room.Reset()
	c.broadcastState(room, OutcomeNone)

	c.logger.Info("重新開局", "short_id", room.ShortID)
}

// Leave 主動離開房間
//
// 離開者先退出傳輸群組再廣播，剩下的玩家才不會漏收
// opponent-left。玩家數歸零時房間同步銷毀。
func (c *Coordinator) Leave(connID, internalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.lookup(connID, internalID)
	if !ok {
		return
	}

	remaining, removed := room.RemovePlayer(connID)
	c.transport.LeaveGroup(connID, room.InternalID)
	c.transport.Reply(connID, EventLeft, nil)

	if remaining == 0 {
		c.registry.Delete(room.ShortID)
	} else if removed {
		c.transport.Broadcast(room.InternalID, EventOpponentLeft, nil)
	}

	c.logger.Info("玩家離開房間",
		"conn_id", connID,
		"short_id", room.ShortID,
		"remaining", remaining)
}

// Disconnect 連線中斷
//
// 傳輸層在連線消失時觸發，沒有對應的入站請求。
// 效果等同 leave，但不回覆（對方已不在線），且必須掃描
// 所有房間：連線原則上最多屬於一個房間，清理仍然全面防禦。
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, room := range c.registry.RoomsContaining(connID) {
		remaining, removed := room.RemovePlayer(connID)
		c.transport.LeaveGroup(connID, room.InternalID)

		if remaining == 0 {
			c.registry.Delete(room.ShortID)
		} else if removed {
			c.transport.Broadcast(room.InternalID, EventOpponentLeft, nil)
		}

		c.logger.Info("斷線清理",
			"conn_id", connID,
			"short_id", room.ShortID,
			"remaining", remaining)
	}
}

// lookup 以 InternalID 定位房間，失敗時回覆錯誤
func (c *Coordinator) lookup(connID, internalID string) (*Room, bool) {
	if internalID == "" {
		c.fail(connID, newGameError(CodeInvalidInput, "房間編號不能為空"))
		return nil, false
	}

	room, exists := c.registry.GetByInternalID(internalID)
	if !exists {
		c.fail(connID, newGameError(CodeNotFound, "房間不存在"))
		return nil, false
	}
	return room, true
}

// broadcastState 向房間群組廣播最新棋局狀態
func (c *Coordinator) broadcastState(room *Room, outcome Outcome) {
	board, currentPlayer := room.BoardSnapshot()

	var winner *string
	if outcome != OutcomeNone {
		w := string(outcome)
		winner = &w
	}

	c.transport.Broadcast(room.InternalID, EventMove, movePayload{
		Board:         board,
		CurrentPlayer: currentPlayer,
		Winner:        winner,
	})
}

// fail 直接回覆錯誤給發起者（永不廣播、不改動狀態）
func (c *Coordinator) fail(connID string, err error) {
	c.transport.Reply(connID, EventError, err.Error())

	c.logger.Debug("請求被拒絕",
		"conn_id", connID,
		"code", string(CodeOf(err)),
		"reason", err.Error())
}
