package internal

import (
	"errors"
	"fmt"
)

// ErrorCode 業務錯誤分類
//
// 所有驗證失敗都是局部性的：只回覆給請求者本人，不廣播、
// 不中斷連線、不改動任何房間狀態。
type ErrorCode string

const (
	CodeInvalidInput ErrorCode = "invalid_input" // 缺少或空白的房間編號
	CodeNotFound     ErrorCode = "not_found"     // 房間不存在
	CodeConflict     ErrorCode = "conflict"      // 房間已滿、重複加入、格子已被佔用
	CodeIllegalState ErrorCode = "illegal_state" // 對局未進行、未輪到該玩家
)

// GameError 帶分類碼的業務錯誤
type GameError struct {
	Code    ErrorCode
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

func newGameError(code ErrorCode, format string, args ...any) *GameError {
	return &GameError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf 取出錯誤的分類碼；非業務錯誤回傳空字串
func CodeOf(err error) ErrorCode {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return ""
}
