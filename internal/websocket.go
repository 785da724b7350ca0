package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 系統設計問題：
//   如何把底層 WebSocket 連線抽象成「連線識別 + 群組廣播」的
//   發佈/訂閱原語，讓協調器完全不碰傳輸細節？
//
// 核心挑戰：
//   1. 連線身份：客戶端沒有帳號，身份就是一條連線的存續期
//   2. 群組廣播：同一房間的玩家要收到一致且有序的狀態
//   3. 斷線偵測：網路異常沒有 leave 請求，要靠心跳觸發清理
//   4. 慢消費者：單一客戶端卡住不能拖累整個房間
//
// 設計方案：
//   ✅ Hub 模式 - 集中管理連線與群組（群組位址 = 房間 InternalID）
//   ✅ Ping/Pong 心跳 - 54s Ping / 60s 讀取超時，死連接走斷線清理
//   ✅ 緩衝 Send channel - 異步發送，緩衝滿即丟棄（不阻塞業務）

// RequestHandler 入站請求處理器
//
// Hub 解析入站訊息後交給它執行；連線消失時觸發 Disconnect。
// 由協調器實作。
type RequestHandler interface {
	CreateRoom(connID string)
	JoinRoom(connID, shortID string)
	Move(connID, internalID string, index int, symbol string)
	Reset(connID, internalID string)
	Leave(connID, internalID string)
	Disconnect(connID string)
}

// Event 出站訊息封包
type Event struct {
	Type string `json:"event"`
	Data any    `json:"data"`
}

// clientMessage 入站訊息封包
//
// roomId 依事件而異：join-room 帶 6 字元加入碼，
// move/reset/leave 帶 join 時取得的 InternalID。
type clientMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
}

// Hub WebSocket 連線中心
//
// 連線映射與群組映射分開維護：連線在 joined 之前就存在
// （可收 error 回覆），群組只在玩家真正進房後才有成員。
type Hub struct {
	handler     RequestHandler
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	connections map[string]*Connection            // connID -> Connection
	groups      map[string]map[string]*Connection // groupID -> connID -> Connection
	mu          sync.RWMutex
}

// Connection WebSocket 連線
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
	closeOnce sync.Once // 確保 Send channel 只關閉一次
}

// NewHub 創建 WebSocket Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 生產環境應檢查來源
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*Connection),
		groups:      make(map[string]map[string]*Connection),
	}
}

// SetHandler 綁定請求處理器
//
// Hub 與協調器互相依賴（Hub 轉發請求、協調器透過 Hub 發送），
// 先建 Hub 再建協調器，最後綁定。
func (hub *Hub) SetHandler(handler RequestHandler) {
	hub.handler = handler
}

// ServeWS 處理 WebSocket 連線
//
// 每條連線分配一個不透明識別，存續期即玩家的身份。
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	connection := &Connection{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
	}

	hub.mu.Lock()
	hub.connections[connection.ID] = connection
	hub.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	hub.logger.Info("WebSocket 連線建立", "conn_id", connection.ID)
}

// Reply 直接回覆單一連線
func (hub *Hub) Reply(connID, event string, payload any) {
	message, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		hub.logger.Error("序列化訊息失敗", "error", err, "event", event)
		return
	}

	hub.mu.RLock()
	conn, exists := hub.connections[connID]
	hub.mu.RUnlock()
	if !exists {
		return
	}
	conn.send(message)
}

// Broadcast 廣播到群組
//
// 同一房間的廣播一律經由協調器串行觸發，
// 各成員觀察到的訊息順序即請求處理順序。
func (hub *Hub) Broadcast(groupID, event string, payload any) {
	message, err := json.Marshal(Event{Type: event, Data: payload})
	if err != nil {
		hub.logger.Error("序列化訊息失敗", "error", err, "event", event)
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, conn := range hub.groups[groupID] {
		conn.send(message)
	}
}

// JoinGroup 把連線加入群組
func (hub *Hub) JoinGroup(connID, groupID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	conn, exists := hub.connections[connID]
	if !exists {
		return
	}
	if hub.groups[groupID] == nil {
		hub.groups[groupID] = make(map[string]*Connection)
	}
	hub.groups[groupID][connID] = conn
}

// LeaveGroup 把連線移出群組
func (hub *Hub) LeaveGroup(connID, groupID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if members, exists := hub.groups[groupID]; exists {
		delete(members, connID)
		if len(members) == 0 {
			delete(hub.groups, groupID)
		}
	}
}

// ConnectionCount 目前連線數
func (hub *Hub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.connections)
}

// unregister 移除連線（含所有群組裡的殘留）
func (hub *Hub) unregister(conn *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if actual, exists := hub.connections[conn.ID]; !exists || actual != conn {
		return
	}
	delete(hub.connections, conn.ID)

	for groupID, members := range hub.groups {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(hub.groups, groupID)
		}
	}

	conn.closeOnce.Do(func() {
		close(conn.Send)
	})
}

// Stop 停止 Hub，關閉所有連線
func (hub *Hub) Stop() {
	hub.mu.Lock()
	for _, conn := range hub.connections {
		conn.closeOnce.Do(func() {
			close(conn.Send)
		})
		conn.Conn.Close()
	}
	hub.connections = make(map[string]*Connection)
	hub.groups = make(map[string]map[string]*Connection)
	hub.mu.Unlock()

	hub.logger.Info("WebSocket Hub 已停止")
}

// send 非阻塞送出
func (c *Connection) send(message []byte) {
	select {
	case c.Send <- message:
	default:
		// 緩衝滿了，丟棄（慢客戶端不能拖累整個房間）
		c.Hub.logger.Warn("連線緩衝區滿，訊息丟棄", "conn_id", c.ID)
	}
}

// readPump 讀取客戶端訊息
//
// 心跳（讀取端）：60 秒內沒有任何訊息（含 Pong）就視為死連接。
// 無論正常關閉或超時，離開迴圈都走同一條斷線清理路徑，
// 所以協調器永遠會收到 Disconnect 通知。
func (c *Connection) readPump() {
	defer func() {
		c.Hub.unregister(c)
		if c.Hub.handler != nil {
			c.Hub.handler.Disconnect(c.ID)
		}
		c.Conn.Close()
		c.Hub.logger.Info("WebSocket 連線關閉", "conn_id", c.ID)
	}()

	if err := c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.Hub.logger.Error("設置讀取期限失敗", "error", err)
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket 讀取錯誤", "error", err, "conn_id", c.ID)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

// writePump 寫入訊息到客戶端
//
// 心跳（發送端）：54 秒 Ping，避開常見的 60 秒代理超時，
// 留 6 秒余量給網路傳輸。
func (c *Connection) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if !ok {
				// Hub 關閉了通道，優雅關閉連線
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量送出隊列中的訊息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 解析入站訊息並分派給協調器
func (c *Connection) handleMessage(message []byte) {
	if c.Hub.handler == nil {
		return
	}

	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.Hub.logger.Error("解析客戶端訊息失敗", "error", err, "conn_id", c.ID)
		c.Hub.Reply(c.ID, EventError, "無效的訊息格式")
		return
	}

	switch msg.Type {
	case EventCreateRoom:
		c.Hub.handler.CreateRoom(c.ID)
	case EventJoinRoom:
		c.Hub.handler.JoinRoom(c.ID, msg.RoomID)
	case EventMove:
		c.Hub.handler.Move(c.ID, msg.RoomID, msg.Index, msg.Symbol)
	case EventReset:
		c.Hub.handler.Reset(c.ID, msg.RoomID)
	case EventLeave:
		c.Hub.handler.Leave(c.ID, msg.RoomID)
	default:
		c.Hub.logger.Debug("收到未知訊息類型", "type", msg.Type, "conn_id", c.ID)
		c.Hub.Reply(c.ID, EventError, "未知的訊息類型: "+msg.Type)
	}
}
