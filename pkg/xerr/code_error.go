package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`

	cause error
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("Code: %d, Message: %s, Cause: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func (e *CodeError) Unwrap() error {
	return e.cause
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// Wrap 保留底层错误，便于日志排查
func Wrap(code int, msg string, cause error) *CodeError {
	return &CodeError{Code: code, Message: msg, cause: cause}
}

// Is 判断 err 链上是否存在指定错误码
func Is(err error, code int) bool {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	InternalServerError = 500

	// 通知领域错误码
	NoRecipients    = 4220
	NoTenantContext = 4221
)

// 常用预定义错误
var (
	ErrSuccess         = New(OK, "Success")
	ErrServerError     = New(InternalServerError, "系统错误，请联系工作人员")
	ErrParam           = New(BadRequest, "参数错误")
	ErrNoRecipients    = New(NoRecipients, "没有可通知的接收人")
	ErrNoTenantContext = New(NoTenantContext, "无法确定当前学校")
)
