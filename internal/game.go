package internal

// 勝負判定
//
// 棋盤採固定 9 格的一維表示（index 0..8，由左至右、由上至下）：
//
//	0 | 1 | 2
//	3 | 4 | 5
//	6 | 7 | 8
//
// 判定是純函數：輸入棋盤、輸出結果，無任何狀態與副作用。
// 共 8 條固定連線（3 橫、3 直、2 斜），任一條三格相同且非空即分出勝負；
// 無人連線且棋盤已滿則為平手。

// BoardSize 棋盤格數
const BoardSize = 9

// 玩家符號：先進房者持 X，後進房者持 O
const (
	SymbolX = "X"
	SymbolO = "O"
)

// Outcome 對局結果
type Outcome string

const (
	OutcomeNone Outcome = ""     // 對局尚未結束
	OutcomeX    Outcome = "X"    // X 連成一線
	OutcomeO    Outcome = "O"    // O 連成一線
	OutcomeDraw Outcome = "draw" // 平手
)

// winLines 8 條固定連線
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // 橫
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // 直
	{0, 4, 8}, {2, 4, 6}, // 斜
}

// CheckWinner 判定棋盤結果
//
// 平手只在沒有任何連線成立時才檢查，
// 所以最後一手同時填滿棋盤又連線時，結果是勝利而非平手。
func CheckWinner(board [BoardSize]string) Outcome {
	for _, line := range winLines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != "" && a == b && b == c {
			return Outcome(a)
		}
	}

	for _, cell := range board {
		if cell == "" {
			return OutcomeNone
		}
	}
	return OutcomeDraw
}

// OpponentOf 取得對手符號
func OpponentOf(symbol string) string {
	if symbol == SymbolX {
		return SymbolO
	}
	return SymbolX
}
