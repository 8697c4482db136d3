package ez

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	resp "arzaquna-api/internal/transport/http/response"
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: resp.CodeConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

var kindCodes = map[domain.Kind]int{
	domain.KindValidation:   resp.CodeBadRequest,
	domain.KindConflict:     resp.CodeConflict,
	domain.KindNotFound:     resp.CodeNotFound,
	domain.KindForbidden:    resp.CodeForbidden,
	domain.KindUnauthorized: resp.CodeUnauthorized,
	domain.KindInternal:     resp.CodeServerError,
}

// Classify error -> (code, msg, data)
func Classify(err error) (int, string, any) {
	var (
		ve  validator.ValidationErrors
		ae  *AErr
		de  *domain.Error
		se  *json.SyntaxError
		ute *json.UnmarshalTypeError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		return resp.CodeBadRequest, "validation failed", gin.H{"errors": FieldErrors(ve)}
	case errors.As(err, &ae):
		if ae.Msg == "" && ae.Code >= resp.CodeServerError {
			return ae.Code, "internal error", nil
		}
		return ae.Code, ae.Error(), nil
	case errors.As(err, &de):
		code, ok := kindCodes[de.Kind]
		if !ok {
			code = resp.CodeServerError
		}
		// 内部错误只暴露 Msg，不暴露底层原因
		if code == resp.CodeServerError && de.Msg == "" {
			return code, "internal error", nil
		}
		return code, de.Error(), nil
	case errors.As(err, &mbe):
		return resp.CodeTooLarge, "request body too large", nil
	case errors.As(err, &se), errors.As(err, &ute):
		return resp.CodeBadRequest, "invalid request body", nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return resp.CodeBadRequest, "invalid request body", nil
	case errors.Is(err, io.EOF):
		return resp.CodeBadRequest, "request body is required", nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return resp.CodeNotFound, "not found", nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return resp.CodeConflict, "resource already exists", nil
	case errors.Is(err, context.DeadlineExceeded):
		return resp.CodeTimeout, "timeout", nil
	}
	return resp.CodeServerError, "internal error", nil
}

// Fail 写错误响应；5xx 的原始错误挂到 c.Errors 交给访问日志
func Fail(c *gin.Context, err error) {
	code, msg, data := Classify(err)
	if code >= resp.CodeServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(resp.HTTPStatus(code), resp.ErrorWith(code, msg, data))
}
