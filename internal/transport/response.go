package transport

import (
	"net/http"
	"time"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Ts      int64  `json:"ts"`
	Data    any    `json:"data"`
}

func Success(status int, data any) Response {
	return Response{Code: status, Message: "success", Ts: time.Now().UnixMilli(), Data: data}
}

func OK(data any) Response {
	return Success(http.StatusOK, data)
}

func Fail(code int, message string) Response {
	return Response{Code: code, Message: message, Ts: time.Now().UnixMilli()}
}

type Page[T any] struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Records  []T   `json:"records"`
}
