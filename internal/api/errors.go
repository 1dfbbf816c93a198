package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// GateError is the error shape the SPA expects: {"code": int, "message": string}.
type GateError struct {
	status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *GateError) Error() string {
	return e.Message
}

func (e *GateError) GetStatus() int {
	return e.status
}

func init() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		if len(errs) > 0 && msg == "" {
			msg = errs[0].Error()
		}
		return &GateError{
			status:  status,
			Code:    status,
			Message: msg,
		}
	}
}
