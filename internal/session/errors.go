package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Every error below ends the session and returns the controller to Idle.
var (
	ErrMediaAccessDenied = errors.New("camera unavailable")
	ErrConnection        = errors.New("connection failed")
	ErrPeerDisconnected  = errors.New("peer disconnected")
	ErrInvalidCode       = errors.New("invalid session code")
	ErrBusy              = errors.New("a session is already in progress")
	ErrNotPlaying        = errors.New("no session in progress")

	errCameraRefresh = errors.New("could not refresh camera")
)

// statusMessage is the user-facing line shown after err ended a session attempt.
func statusMessage(err error, role string) string {
	switch {
	case err == nil:
		return "You left the game."
	case errors.Is(err, errCameraRefresh):
		return "Could not refresh camera."
	case errors.Is(err, ErrMediaAccessDenied):
		return "Camera access denied. Please allow and refresh."
	case errors.Is(err, ErrInvalidCode):
		return "Please enter a valid 4-digit code."
	case errors.Is(err, ErrPeerDisconnected):
		return "Friend disconnected."
	case errors.Is(err, ErrConnection):
		cause := strings.TrimPrefix(err.Error(), ErrConnection.Error()+": ")
		if role == "client" {
			return fmt.Sprintf("Error: %s. Check code or refresh.", cause)
		}
		return fmt.Sprintf("Error: %s. Please refresh.", cause)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled."
	default:
		return fmt.Sprintf("Error: %v.", err)
	}
}
