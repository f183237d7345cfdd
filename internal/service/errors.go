package service

import "errors"

// 业务错误
// handler层按错误值映射HTTP状态码
var (
	ErrNotFound            = errors.New("resource not found")
	ErrForbidden           = errors.New("permission denied")
	ErrInvalidRelationship = errors.New("no teaching relationship between parent and teacher")
	ErrInvalidArgument     = errors.New("invalid argument")
)
