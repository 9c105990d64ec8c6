package resizetest

import (
	"time"

	"github.com/vango-dev/resize/pkg/protocol"
)

type stepKind uint8

const (
	stepSend stepKind = iota + 1
	stepRaw
	stepSleep
	stepClose
	stepDrop
	stepHold
)

// Step is one action of a Script.
type Step struct {
	kind    stepKind
	frame   protocol.StatusFrame
	raw     string
	delay   time.Duration
	code    int
	message string
}

// Script is what the resize endpoint plays after it has read the request.
// When a script ends without Close or Drop the server holds the channel
// until the client closes it.
type Script []Step

// Send sends a status frame.
func Send(kind protocol.Kind, message string) Step {
	return Step{kind: stepSend, frame: protocol.StatusFrame{Status: kind, Message: message}}
}

// Progress sends a progress frame carrying a lifecycle phase.
func Progress(phase string) Step {
	return Send(protocol.KindProgress, phase)
}

// Fail sends an error frame.
func Fail(message string) Step {
	return Send(protocol.KindError, message)
}

// Succeed sends a success frame.
func Succeed(message string) Step {
	return Send(protocol.KindSuccess, message)
}

// SendRaw sends text verbatim.
func SendRaw(text string) Step {
	return Step{kind: stepRaw, raw: text}
}

// Sleep pauses the script.
func Sleep(d time.Duration) Step {
	return Step{kind: stepSleep, delay: d}
}

// Close sends a normal close frame and ends the script.
func Close() Step {
	return CloseWith(1000, "")
}

// CloseWith sends a close frame with code and reason and ends the script.
func CloseWith(code int, reason string) Step {
	return Step{kind: stepClose, code: code, message: reason}
}

// Drop closes the TCP connection without a close frame.
func Drop() Step {
	return Step{kind: stepDrop}
}

// Hold keeps the channel open until the client closes it or the server is
// closed.
func Hold() Step {
	return Step{kind: stepHold}
}

// ResizeScript is a realistic successful change: the instance is stopped,
// resized and started again.
func ResizeScript(pace time.Duration) Script {
	return Script{
		Progress("stopping"),
		Sleep(pace),
		Progress("stopped"),
		Sleep(pace),
		Progress("pending"),
		Sleep(pace),
		Progress("running"),
		Succeed("instance type changed"),
	}
}
