package internal

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// shortIDAlphabet 加入碼字元集（36 字元）
//
// 6 位編碼空間為 36^6 ≈ 22 億。產生器本身不保證唯一，
// 由 Create 在註冊前比對存活房間、碰撞即重取；
// 存活房間數遠小於編碼空間，重試次數在實務上趨近於零。
const shortIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// shortIDLength 加入碼長度
const shortIDLength = 6

// Registry 房間註冊表
//
// 擁有「加入碼 → 房間」的唯一權威映射。另維護一個以 InternalID
// 為鍵的二級索引：move/reset/leave 都以傳輸群組位址定位房間，
// 沒有索引就得對所有存活房間做 O(n) 掃描。
type Registry struct {
	rooms    map[string]*Room  // shortID -> Room
	internal map[string]string // internalID -> shortID（二級索引）
	mu       sync.RWMutex
	logger   *slog.Logger

	// 閒置清理（預設關閉，見 cleanupLoop）
	idleTimeout  time.Duration
	reapInterval time.Duration
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// RegistryStats 統計快照
type RegistryStats struct {
	TotalRooms   int `json:"total_rooms"`
	WaitingRooms int `json:"waiting_rooms"`
	ActiveGames  int `json:"active_games"`
}

// NewRegistry 創建房間註冊表
//
// idleTimeout > 0 時啟動清理 goroutine，定期回收閒置過久的
// waiting 房間；0 表示停用，waiting 房間存活到玩家斷線為止。
func NewRegistry(logger *slog.Logger, idleTimeout, reapInterval time.Duration) *Registry {
	if reapInterval <= 0 {
		reapInterval = time.Minute
	}

	r := &Registry{
		rooms:        make(map[string]*Room),
		internal:     make(map[string]string),
		logger:       logger,
		idleTimeout:  idleTimeout,
		reapInterval: reapInterval,
		stopCh:       make(chan struct{}),
	}

	if idleTimeout > 0 {
		r.wg.Add(1)
		go r.cleanupLoop()
	}

	return r
}

// Create 創建並註冊新房間
//
// 加入碼在持鎖狀態下取樣、比對、註冊，
// 所以任一瞬間存活房間的加入碼兩兩相異。
func (reg *Registry) Create() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var shortID string
	for {
		shortID = generateShortID()
		if _, exists := reg.rooms[shortID]; !exists {
			break
		}
		// 碰撞，重取
	}

	room := NewRoom(shortID, uuid.NewString())
	reg.rooms[shortID] = room
	reg.internal[room.InternalID] = shortID

	reg.logger.Info("房間已創建",
		"short_id", shortID,
		"internal_id", room.InternalID)

	return room
}

// Get 以加入碼取得房間
func (reg *Registry) Get(shortID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, exists := reg.rooms[shortID]
	return room, exists
}

// GetByInternalID 以傳輸群組位址取得房間
func (reg *Registry) GetByInternalID(internalID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	shortID, exists := reg.internal[internalID]
	if !exists {
		return nil, false
	}
	room, exists := reg.rooms[shortID]
	return room, exists
}

// Delete 移除房間
func (reg *Registry) Delete(shortID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, exists := reg.rooms[shortID]
	if !exists {
		return
	}

	delete(reg.internal, room.InternalID)
	delete(reg.rooms, shortID)

	reg.logger.Info("房間已移除", "short_id", shortID)
}

// RoomsContaining 找出所有包含該連線的房間
//
// 斷線清理用。正常運作下一條連線最多屬於一個房間，
// 但清理必須全表掃描，避免任何殘留。
func (reg *Registry) RoomsContaining(connID string) []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var result []*Room
	for _, room := range reg.rooms {
		if room.HasPlayer(connID) {
			result = append(result, room)
		}
	}
	return result
}

// Count 存活房間數
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Stats 統計快照
//
// active 是導出值：非 waiting 的房間都算進行中的對局
// （finished 的房間還掛著兩位玩家，隨時可能 reset 續戰）。
func (reg *Registry) Stats() RegistryStats {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	stats := RegistryStats{TotalRooms: len(reg.rooms)}
	for _, room := range reg.rooms {
		if room.StatusSnapshot() == StatusWaiting {
			stats.WaitingRooms++
		}
	}
	stats.ActiveGames = stats.TotalRooms - stats.WaitingRooms
	return stats
}

// cleanupLoop 定期回收閒置房間
func (reg *Registry) cleanupLoop() {
	defer reg.wg.Done()

	ticker := time.NewTicker(reg.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reg.Cleanup()
		case <-reg.stopCh:
			return
		}
	}
}

// Cleanup 執行一輪清理（公開供測試使用）
//
// 回收兩類房間：
//   - 玩家數為零的房間（防禦性：正常流程已同步刪除）
//   - 閒置超過 idleTimeout 的 waiting 房間（若有設定）
func (reg *Registry) Cleanup() {
	reg.mu.RLock()
	var toRemove []string
	for shortID, room := range reg.rooms {
		if room.PlayerCount() == 0 {
			toRemove = append(toRemove, shortID)
			continue
		}
		if reg.idleTimeout > 0 &&
			room.StatusSnapshot() == StatusWaiting &&
			room.IdleSince() > reg.idleTimeout {
			toRemove = append(toRemove, shortID)
		}
	}
	reg.mu.RUnlock()

	for _, shortID := range toRemove {
		reg.Delete(shortID)
		reg.logger.Info("閒置房間已回收", "short_id", shortID)
	}
}

// Stop 停止註冊表
func (reg *Registry) Stop() {
	close(reg.stopCh)
	reg.wg.Wait()
	reg.logger.Info("房間註冊表已停止")
}

// generateShortID 取樣一個 6 字元加入碼
func generateShortID() string {
	b := make([]byte, shortIDLength)
	for i := range b {
		b[i] = shortIDAlphabet[randInt(len(shortIDAlphabet))]
	}
	return string(b)
}

// randInt 生成隨機數
func randInt(max int) int {
	b := make([]byte, 1)
	if _, err := rand.Read(b); err != nil {
		// 隨機讀取失敗時，退回時間作為隨機源
		return int(time.Now().UnixNano()) % max
	}
	return int(b[0]) % max
}
