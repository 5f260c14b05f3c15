package attendance

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"

	// 分類器固有のエラーコード
	CodeNotAnAttendanceDay Code = "NOT_AN_ATTENDANCE_DAY" // 休業日のスキャン。何も記録しない
	CodeAlreadyRecorded    Code = "ALREADY_RECORDED"      // 同じ半分への二重スキャン
	CodeConfigMissing      Code = "CONFIG_MISSING"        // 時間枠が解決できない（運用者対応が必要）
	CodeBusy               Code = "BUSY"                  // キー競合。呼び出し側は1回だけ再試行してよい
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func ErrNotAnAttendanceDay(msg string) *APIError {
	return &APIError{Code: CodeNotAnAttendanceDay, Message: msg}
}
func ErrAlreadyRecorded(msg string) *APIError {
	return &APIError{Code: CodeAlreadyRecorded, Message: msg}
}
func ErrConfigMissing(msg string) *APIError {
	return &APIError{Code: CodeConfigMissing, Message: msg}
}
func ErrBusy(msg string) *APIError { return &APIError{Code: CodeBusy, Message: msg} }

// HasCode: テスト・呼び出し側での判定用
func HasCode(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeAlreadyRecorded:
			return http.StatusConflict
		case CodeNotAnAttendanceDay, CodeConfigMissing:
			return http.StatusUnprocessableEntity
		case CodeBusy:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
