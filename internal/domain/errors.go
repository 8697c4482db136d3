package domain

import "errors"

// Kind 错误分类，传输层据此映射状态码
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error   { return &Error{Kind: KindValidation, Msg: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Msg: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 非 *Error 一律按 internal
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrAlreadyApplied          = &Error{Kind: KindConflict, Msg: "you already have a pending or approved vendor application"}
	ErrAlreadyVendor           = &Error{Kind: KindConflict, Msg: "you are already a vendor"}
	ErrAlreadyReviewed         = &Error{Kind: KindConflict, Msg: "application has already been reviewed"}
	ErrEmailOrPhoneTaken       = &Error{Kind: KindConflict, Msg: "email or phone already in use by another user"}
	ErrApplicationNotFound     = &Error{Kind: KindNotFound, Msg: "application not found"}
	ErrUserNotFound            = &Error{Kind: KindNotFound, Msg: "user not found"}
	ErrVendorNotFound          = &Error{Kind: KindNotFound, Msg: "vendor not found"}
	ErrCategoryNotFound        = &Error{Kind: KindNotFound, Msg: "one or more categories not found"}
	ErrRejectionReasonRequired = &Error{Kind: KindValidation, Msg: "rejection reason is required"}
	ErrUnknownReviewAction     = &Error{Kind: KindValidation, Msg: "status must be APPROVED or REJECTED"}
	ErrSpecializationRequired  = &Error{Kind: KindValidation, Msg: "specialization categories are required"}
	ErrPasswordMismatch        = &Error{Kind: KindValidation, Msg: "passwords do not match"}
	ErrInvalidCredentials      = &Error{Kind: KindUnauthorized, Msg: "invalid credentials"}
	ErrAccountDisabled         = &Error{Kind: KindForbidden, Msg: "account is deactivated"}
	ErrVendorNotApproved       = &Error{Kind: KindForbidden, Msg: "vendor not approved"}
)
