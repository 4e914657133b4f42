package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups error codes by who can correct them.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"    // Caller-correctable input problems
	KindAuthorization ErrorKind = "authorization" // Wrong role or wrong signer
	KindState         ErrorKind = "state"         // Operation illegal for the current record state
	KindResource      ErrorKind = "resource"      // Insufficient balances, missing vault, store contention
	KindUnsupported   ErrorKind = "unsupported"   // Declared but intentionally unimplemented
)

// Error is the typed failure returned by every ledger operation.
// Two errors match with errors.Is when their codes are equal, so callers can
// compare against the exported sentinels regardless of Op or detail.
type Error struct {
	Code   string
	Kind   ErrorKind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With returns a copy of the sentinel bound to an operation and an optional detail.
func (e *Error) With(op string, format string, args ...any) *Error {
	out := *e
	out.Op = op
	if format != "" {
		out.Detail = fmt.Sprintf(format, args...)
	}
	return &out
}

// Wrap returns a copy of the sentinel bound to an operation with an underlying cause.
func (e *Error) Wrap(op string, cause error) *Error {
	out := *e
	out.Op = op
	out.Err = cause
	return &out
}

func newError(kind ErrorKind, code string) *Error {
	return &Error{Code: code, Kind: kind}
}

// Validation errors.
var (
	ErrAlreadyRegistered         = newError(KindValidation, "AlreadyRegistered")
	ErrNameTooLong               = newError(KindValidation, "NameTooLong")
	ErrContactInfoTooLong        = newError(KindValidation, "ContactInfoTooLong")
	ErrDescriptionTooLong        = newError(KindValidation, "DescriptionTooLong")
	ErrProduceTypeTooLong        = newError(KindValidation, "ProduceTypeTooLong")
	ErrQrCodeURITooLong          = newError(KindValidation, "QrCodeUriTooLong")
	ErrInvalidRole               = newError(KindValidation, "InvalidRole")
	ErrInvalidIdentity           = newError(KindValidation, "InvalidIdentity")
	ErrInvalidQuality            = newError(KindValidation, "InvalidQuality")
	ErrInvalidQuantity           = newError(KindValidation, "InvalidQuantity")
	ErrInvalidHumidity           = newError(KindValidation, "InvalidHumidity")
	ErrInvalidTemperature        = newError(KindValidation, "InvalidTemperature")
	ErrInvalidAmount             = newError(KindValidation, "InvalidAmount")
	ErrInsufficientFundingAmount = newError(KindValidation, "InsufficientFundingAmount")
	ErrOverflow                  = newError(KindValidation, "Overflow")
	ErrProduceIDInUse            = newError(KindValidation, "ProduceIdInUse")
	ErrProposalIDInUse           = newError(KindValidation, "ProposalIdInUse")
	ErrUnknownInstruction        = newError(KindValidation, "UnknownInstruction")
	ErrInvalidArguments          = newError(KindValidation, "InvalidArguments")
)

// Authorization errors.
var (
	ErrUnauthorized = newError(KindAuthorization, "Unauthorized")
)

// State errors.
var (
	ErrNotRegistered        = newError(KindState, "NotRegistered")
	ErrProduceNotFound      = newError(KindState, "ProduceNotFound")
	ErrInvalidStatus        = newError(KindState, "InvalidStatus")
	ErrAlreadySettled       = newError(KindState, "AlreadySettled")
	ErrDisputeAlreadyExists = newError(KindState, "DisputeAlreadyExists")
	ErrDisputeNotFound      = newError(KindState, "DisputeNotFound")
	ErrAlreadyResolved      = newError(KindState, "AlreadyResolved")
	ErrProposalNotFound     = newError(KindState, "ProposalNotFound")
	ErrAlreadyVoted         = newError(KindState, "AlreadyVoted")
	ErrAlreadyInitialized   = newError(KindState, "AlreadyInitialized")
)

// Resource errors.
var (
	ErrVaultNotInitialized      = newError(KindResource, "VaultNotInitialized")
	ErrInsufficientVaultBalance = newError(KindResource, "InsufficientVaultBalance")
	ErrInsufficientFunds        = newError(KindResource, "InsufficientFunds")
	ErrInsufficientStake        = newError(KindResource, "InsufficientStake")
	ErrConflict                 = newError(KindResource, "Conflict")
)

// Unsupported operations.
var (
	ErrNotImplemented = newError(KindUnsupported, "NotImplemented")
)

// ErrRecordNotFound is returned by stores when a key holds no record.
// It is an infrastructure signal; the engine translates it into a typed error.
var ErrRecordNotFound = errors.New("record not found")

// KindOf reports the kind of a ledger error, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf reports the code of a ledger error, or "" for infrastructure errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
