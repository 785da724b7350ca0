package internal

import (
	"strings"
	"sync"
	"time"
)

// 系統設計問題：
//   如何為雙人回合制棋局維護唯一的權威狀態，並擋下所有非法請求？
//
// 核心挑戰：
//   1. 狀態管理：房間有明確的狀態轉換（waiting → playing → finished → playing…）
//   2. 回合制約束：每一手都要驗證「輪到誰」與「格子是否已被佔用」
//   3. 先手輪替：重新開局時，先手要在 X / O 之間交替
//   4. 生命週期：最後一位玩家離開的瞬間，房間必須同步銷毀
//
// 設計方案：
//   ✅ 有限狀態機 - 規範狀態轉換，非法操作一律拒絕且不改動狀態
//   ✅ 有序玩家序列 - 進房順序即符號分配（第一位 X、第二位 O）
//   ✅ RWMutex - 協調器寫入、統計端點並發讀取

// RoomStatus 房間狀態
//
// 有限狀態機：
//
//	waiting → playing → finished
//	             ↑________↓ (reset)
//
// 狀態轉換規則：
//   - waiting → playing：第二位玩家加入
//   - playing → finished：勝負判定出現結果（勝利或平手）
//   - finished → playing：reset 清空棋盤重新開局
//   - 任何狀態 → 銷毀：玩家數歸零（離開或斷線）
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"  // 1 位玩家，等待對手
	StatusPlaying  RoomStatus = "playing"  // 2 位玩家，對局進行中
	StatusFinished RoomStatus = "finished" // 已分出結果，棋盤可檢視，等待 reset
)

// Room 一場對局
//
// 兩個識別碼有明確分工，不可混用：
//   - ShortID：對人的 6 字元加入碼（A–Z、0–9），在存活房間之間唯一
//   - InternalID：對傳輸層的群組位址，move/reset/leave 都以它定位房間
type Room struct {
	ShortID    string `json:"short_id"`
	InternalID string `json:"internal_id"`

	Players            []string          `json:"players"` // 連線識別，依進房順序
	Board              [BoardSize]string `json:"board"`
	CurrentPlayer      string            `json:"current_player"`
	Status             RoomStatus        `json:"status"`
	LastStartingSymbol string            `json:"last_starting_symbol"` // 最近一局的先手，reset 時輪替

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Mu sync.RWMutex `json:"-"`
}

// NewRoom 創建新房間
func NewRoom(shortID, internalID string) *Room {
	now := time.Now()
	return &Room{
		ShortID:            shortID,
		InternalID:         internalID,
		Players:            make([]string, 0, 2),
		CurrentPlayer:      SymbolX,
		Status:             StatusWaiting,
		LastStartingSymbol: SymbolX,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// AddPlayer 加入玩家
//
// 第一位玩家持 X，第二位持 O。第二位加入的瞬間狀態轉為 playing，
// 並由 LastStartingSymbol 決定先手（首局是 X，之後每次 reset 輪替）。
func (r *Room) AddPlayer(connID string) (string, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	for _, p := range r.Players {
		if p == connID {
			return "", newGameError(CodeConflict, "玩家已在房間內")
		}
	}

	if len(r.Players) >= 2 {
		return "", newGameError(CodeConflict, "房間已滿")
	}

	r.Players = append(r.Players, connID)
	r.UpdatedAt = time.Now()

	if len(r.Players) == 2 {
		r.Status = StatusPlaying
		r.CurrentPlayer = r.LastStartingSymbol
		return SymbolO, nil
	}
	return SymbolX, nil
}

// RemovePlayer 移除玩家
//
// 回傳剩餘人數與是否真的移除了人。剩餘人數歸零時，
// 呼叫端（協調器）必須同步把房間從註冊表刪除。
func (r *Room) RemovePlayer(connID string) (int, bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	for i, p := range r.Players {
		if p == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			r.UpdatedAt = time.Now()
			return len(r.Players), true
		}
	}
	return len(r.Players), false
}

// ApplyMove 落子
//
// 狀態機驗證，依序擋下：
//   - 對局未進行（waiting 還沒湊滿人、finished 要先 reset）
//   - 未輪到該符號
//   - 目標格超界或已被佔用（已填的格子永不覆寫）
//
// 任一驗證失敗都不改動棋盤、回合與狀態。
func (r *Room) ApplyMove(index int, symbol string) (Outcome, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Status != StatusPlaying {
		return OutcomeNone, newGameError(CodeIllegalState, "對局未進行")
	}
	if symbol != r.CurrentPlayer {
		return OutcomeNone, newGameError(CodeIllegalState, "尚未輪到 %s", symbol)
	}
	if index < 0 || index >= BoardSize {
		return OutcomeNone, newGameError(CodeInvalidInput, "無效的格子位置: %d", index)
	}
	if r.Board[index] != "" {
		return OutcomeNone, newGameError(CodeConflict, "格子已被佔用")
	}

	r.Board[index] = symbol
	r.CurrentPlayer = OpponentOf(symbol)
	r.UpdatedAt = time.Now()

	outcome := CheckWinner(r.Board)
	if outcome != OutcomeNone {
		r.Status = StatusFinished
	}
	return outcome, nil
}

// Reset 重新開局
//
// 清空棋盤、輪替先手、狀態回到 playing。
// 連續兩次 reset 會讓先手回到原本的符號。
func (r *Room) Reset() {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	r.LastStartingSymbol = OpponentOf(r.LastStartingSymbol)
	r.Board = [BoardSize]string{}
	r.CurrentPlayer = r.LastStartingSymbol
	r.Status = StatusPlaying
	r.UpdatedAt = time.Now()
}

// HasPlayer 判斷連線是否為房間玩家
func (r *Room) HasPlayer(connID string) bool {
	r.Mu.RLock()
	defer r.Mu.RUnlock()

	for _, p := range r.Players {
		if p == connID {
			return true
		}
	}
	return false
}

// PlayerSymbol 取得連線對應的符號
func (r *Room) PlayerSymbol(connID string) (string, bool) {
	r.Mu.RLock()
	defer r.Mu.RUnlock()

	for i, p := range r.Players {
		if p == connID {
			if i == 0 {
				return SymbolX, true
			}
			return SymbolO, true
		}
	}
	return "", false
}

// PlayerCount 取得玩家數量
func (r *Room) PlayerCount() int {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return len(r.Players)
}

// BoardSnapshot 取得棋盤與回合的一致性快照
func (r *Room) BoardSnapshot() ([BoardSize]string, string) {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return r.Board, r.CurrentPlayer
}

// StatusSnapshot 取得目前狀態
func (r *Room) StatusSnapshot() RoomStatus {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return r.Status
}

// IdleSince 最後一次狀態變動距今的時間
func (r *Room) IdleSince() time.Duration {
	r.Mu.RLock()
	defer r.Mu.RUnlock()
	return time.Since(r.UpdatedAt)
}

// NormalizeShortID 正規化人輸入的加入碼（去空白、轉大寫）
func NormalizeShortID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
