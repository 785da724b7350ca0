// Package internal 實作一個雙人回合制棋局的配對與權威狀態服務器。
//
// 玩家創建房間後取得 6 字元加入碼，對手以加入碼配對進房；
// 服務器維護每個房間的唯一權威狀態（棋盤、回合、勝負），
// 驗證所有改動狀態的請求，並把結果廣播給房間內的所有連線。
//
// 架構分層：
//   - game：勝負判定（純函數）
//   - room：單一對局的狀態機
//   - registry：加入碼 → 房間的權威映射與生命週期
//   - coordinator：create/join/move/reset/leave/disconnect 的協調邏輯
//   - websocket：傳輸適配層（連線身份、群組廣播、心跳）
//   - handler：HTTP 健康檢查與統計
//
// 並發模型：協調器以單一互斥鎖串行化每個請求的
// 「讀取 → 驗證 → 改動 → 發送」，同房間的廣播順序
// 即請求處理順序；房間本身另有讀寫鎖供統計端點並發讀取。
package internal
