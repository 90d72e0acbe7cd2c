package services

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/coah80/clipbot/internal/util"
)

type Reason string

const (
	ReasonTooLong     Reason = "too_long"
	ReasonUnavailable Reason = "unavailable"
	ReasonTooLarge    Reason = "too_large"
	ReasonNoFFmpeg    Reason = "no_ffmpeg"
	ReasonNotFound    Reason = "not_found"
	ReasonUnknown     Reason = "unknown"
)

const maxErrorMessage = 100

// Failure is the error every unsuccessful download returns. Message is safe
// to show to the user.
type Failure struct {
	Reason  Reason
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Reason)
	}
	return string(f.Reason) + ": " + f.Message
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure unwraps err into a *Failure. Errors that are not failures come
// back as ReasonUnknown so callers always have something to show.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return unexpected(err)
}

// IsFatal reports faults the host has to fix, like a full or read-only disk.
func IsFatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EROFS)
}

func unexpected(err error) *Failure {
	return &Failure{
		Reason:  ReasonUnknown,
		Message: fmt.Sprintf("%T: %s", err, util.Truncate(err.Error(), maxErrorMessage)),
		Err:     err,
	}
}

// classifyExtractorError maps yt-dlp failure text onto a reason.
func classifyExtractorError(err error, maxMinutes int) *Failure {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "too long"):
		return &Failure{Reason: ReasonTooLong, Message: fmt.Sprintf("Video is too long. Maximum is %d min.", maxMinutes), Err: err}
	case strings.Contains(lower, "private"), strings.Contains(lower, "unavailable"):
		return &Failure{Reason: ReasonUnavailable, Message: "Video is private or unavailable.", Err: err}
	default:
		return &Failure{Reason: ReasonUnknown, Message: "Download error: " + util.Truncate(msg, maxErrorMessage), Err: err}
	}
}
