package internal_test

import (
	"testing"

	"github.com/koopa0/system-design/14-tic-tac-toe/internal"
	"github.com/stretchr/testify/assert"
)

// TestCheckWinner 測試勝負判定
func TestCheckWinner(t *testing.T) {
	tests := []struct {
		name     string
		board    [internal.BoardSize]string
		expected internal.Outcome
	}{
		{
			name:     "empty board game continues",
			board:    [internal.BoardSize]string{},
			expected: internal.OutcomeNone,
		},
		{
			name:     "game in progress",
			board:    [internal.BoardSize]string{"X", "O", "", "", "X", "", "", "", ""},
			expected: internal.OutcomeNone,
		},
		{
			name:     "X wins top row",
			board:    [internal.BoardSize]string{"X", "X", "X", "O", "O", "", "", "", ""},
			expected: internal.OutcomeX,
		},
		{
			name:     "X wins middle row",
			board:    [internal.BoardSize]string{"O", "O", "", "X", "X", "X", "", "", ""},
			expected: internal.OutcomeX,
		},
		{
			name:     "O wins bottom row",
			board:    [internal.BoardSize]string{"X", "X", "", "", "X", "", "O", "O", "O"},
			expected: internal.OutcomeO,
		},
		{
			name:     "X wins left column",
			board:    [internal.BoardSize]string{"X", "O", "", "X", "O", "", "X", "", ""},
			expected: internal.OutcomeX,
		},
		{
			name:     "O wins middle column",
			board:    [internal.BoardSize]string{"X", "O", "", "X", "O", "", "", "O", "X"},
			expected: internal.OutcomeO,
		},
		{
			name:     "X wins right column",
			board:    [internal.BoardSize]string{"O", "", "X", "", "O", "X", "", "", "X"},
			expected: internal.OutcomeX,
		},
		{
			name:     "X wins main diagonal",
			board:    [internal.BoardSize]string{"X", "O", "", "O", "X", "", "", "", "X"},
			expected: internal.OutcomeX,
		},
		{
			name:     "O wins anti diagonal",
			board:    [internal.BoardSize]string{"X", "X", "O", "", "O", "", "O", "X", ""},
			expected: internal.OutcomeO,
		},
		{
			name:     "draw full board no line",
			board:    [internal.BoardSize]string{"X", "O", "X", "X", "O", "O", "O", "X", "X"},
			expected: internal.OutcomeDraw,
		},
		{
			name: "last move fills board and wins",
			// 最後一手同時填滿棋盤又連成左直行，判勝不判平
			board:    [internal.BoardSize]string{"X", "O", "O", "X", "O", "X", "X", "X", "O"},
			expected: internal.OutcomeX,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, internal.CheckWinner(tt.board))
		})
	}
}

// TestCheckWinner_TotalFunction 結果永遠是四種取值之一
func TestCheckWinner_TotalFunction(t *testing.T) {
	boards := [][internal.BoardSize]string{
		{},
		{"X", "", "", "", "", "", "", "", ""},
		{"X", "O", "X", "O", "X", "O", "X", "O", "X"},
		{"O", "O", "O", "X", "X", "", "X", "", ""},
	}

	valid := []internal.Outcome{
		internal.OutcomeNone,
		internal.OutcomeX,
		internal.OutcomeO,
		internal.OutcomeDraw,
	}

	for _, board := range boards {
		assert.Contains(t, valid, internal.CheckWinner(board))
	}
}

// TestOpponentOf 測試符號對換
func TestOpponentOf(t *testing.T) {
	assert.Equal(t, internal.SymbolO, internal.OpponentOf(internal.SymbolX))
	assert.Equal(t, internal.SymbolX, internal.OpponentOf(internal.SymbolO))
}
