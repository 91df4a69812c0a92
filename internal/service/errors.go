package service

import "errors"

// 业务层通用错误，handler 可根据错误类型映射到合适的 HTTP 状态码或 WS 事件。
var (
	ErrEmptyContent = errors.New("empty content")
	ErrNoIdentity   = errors.New("no identity")
	ErrRevokeDenied = errors.New("can only revoke your own message")
	ErrUserNotFound = errors.New("user not found")
)
