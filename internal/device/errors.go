package device

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"

	"atlas/internal/services"
)

// Cause classifies why the microphone could not be used.
type Cause string

const (
	CausePermission Cause = "permission_denied"
	CauseNotFound   Cause = "not_found"
	CauseOther      Cause = "other"
)

const (
	PermissionMessage = "Mikrofon izni reddedildi. Lütfen ses cihazına erişim izni verin (kullanıcıyı audio grubuna ekleyin)."
	NotFoundMessage   = "Mikrofon bulunamadı. Lütfen mikrofonunuzun takılı olduğundan emin olun."
)

// Error is a classified capture failure. Message is the user-facing text.
type Error struct {
	Cause   Cause
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap exposes both the device marker and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{services.ErrDevice, e.Err}
}

// UserMessage returns the text shown to the user.
func UserMessage(err error) string {
	var devErr *Error
	if errors.As(err, &devErr) {
		return devErr.Message
	}
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Mikrofon hatası: %s", err.Error())
}

// Classify maps a capture failure onto a device Error. Errors that are
// already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var devErr *Error
	if errors.As(err, &devErr) {
		return err
	}

	cause := classifyCause(err)
	var message string
	switch cause {
	case CausePermission:
		message = PermissionMessage
	case CauseNotFound:
		message = NotFoundMessage
	default:
		message = fmt.Sprintf("Mikrofon hatası: %s - %s", errorName(err), strings.TrimSpace(err.Error()))
	}
	return &Error{Cause: cause, Message: message, Err: err}
}

func classifyCause(err error) Cause {
	switch {
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return CausePermission
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENOENT):
		return CauseNotFound
	}

	// arecord reports most failures only through stderr.
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "permission denied"), strings.Contains(text, "operation not permitted"):
		return CausePermission
	case strings.Contains(text, "no such file"), strings.Contains(text, "no soundcards found"),
		strings.Contains(text, "no such device"), strings.Contains(text, "not found"):
		return CauseNotFound
	}
	return CauseOther
}

func errorName(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "ExitError"
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return "PathError"
	}
	return "Error"
}
