package e

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку для внешних адаптеров (HTTP-статус и т.п.).
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error — доменная ошибка, несущая свой вид как данные.
// Msg безопасно отдавать клиенту API.
type Error struct {
	Kind Kind
	Msg  string

	sentinel bool
}

func (err *Error) Error() string {
	return err.Msg
}

// Is сопоставляет ошибку с сентинелами пакета по виду,
// поэтому errors.Is(err, e.ErrNotFound) срабатывает для любой not-found ошибки.
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.sentinel {
		return t.Kind == err.Kind
	}

	return t == err
}

func newSentinel(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, sentinel: true}
}

var (
	ErrValidation        = newSentinel(KindValidation, "validation failed")
	ErrNotFound          = newSentinel(KindNotFound, "not found")
	ErrInsufficientStock = newSentinel(KindInsufficientStock, "insufficient stock")
	ErrConflict          = newSentinel(KindConflict, "conflict")

	// 500 Internal Server Error
	ErrInternalServerError = errors.New("internal server error")

	// 400 Bad Request
	ErrInvalidRequestBody = Validation("invalid request body")
	ErrInvalidID          = Validation("invalid id")

	ErrIncorrectEnvVariable = errors.New("incorrect environment variable")
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...any) error {
	return &Error{Kind: KindInsufficientStock, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// KindOf возвращает вид первой *Error в цепочке, иначе KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	return KindInternal
}

// Message возвращает сообщение для клиента.
// Текст внутренних ошибок наружу не отдаётся.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Msg
	}

	return ErrInternalServerError.Error()
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
