// Package errs содержит типизированные ошибки движка синхронизации.
package errs

import (
	"errors"
	"strings"
)

// Kind - категория ошибки.
type Kind uint8

const (
	Unknown Kind = iota
	NotAuthenticated
	Offline
	NotConnected
	Corrupt
	AlreadySyncing
	NotFound
	PersistenceFailure
	InvalidSlot
)

func (k Kind) String() string {
	switch k {
	case NotAuthenticated:
		return "not authenticated"
	case Offline:
		return "offline"
	case NotConnected:
		return "not connected"
	case Corrupt:
		return "corrupt"
	case AlreadySyncing:
		return "already syncing"
	case NotFound:
		return "not found"
	case PersistenceFailure:
		return "persistence failure"
	case InvalidSlot:
		return "invalid slot"
	default:
		return "unknown"
	}
}

// Сентинелы для errors.Is: совпадают с любой *Error того же Kind.
var (
	ErrNotAuthenticated   = &Error{Kind: NotAuthenticated}
	ErrOffline            = &Error{Kind: Offline}
	ErrNotConnected       = &Error{Kind: NotConnected}
	ErrCorrupt            = &Error{Kind: Corrupt}
	ErrAlreadySyncing     = &Error{Kind: AlreadySyncing}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrPersistenceFailure = &Error{Kind: PersistenceFailure}
	ErrInvalidSlot        = &Error{Kind: InvalidSlot}
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E создает ошибку операции op.
func E(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Err != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// KindOf возвращает Kind первой *Error в цепочке, иначе Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is сообщает, относится ли err к категории kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
