//go:build !linux

package queue

import "errors"

// ErrUnsupported is returned by every platform hook on operating
// systems where POSIX message queues are not wired up. SyncText
// targets Linux; this file exists only so the package still builds
// (without functioning) on other POSIX hosts during development.
var ErrUnsupported = errors.New("queue: POSIX message queues not supported on this platform")

func createOwnQueue(name string, maxMsg, msgSize int) (int, error) { return -1, ErrUnsupported }
func openSendOnly(name string) (int, error)                        { return -1, ErrUnsupported }
func sendNonBlocking(fd int, buf []byte) error                     { return ErrUnsupported }
func receiveNonBlocking(fd int, buf []byte) (int, error)           { return 0, ErrUnsupported }
func queueMsgSize(fd int) (int, error)                              { return 0, ErrUnsupported }
func closeFD(fd int) error                                          { return nil }
func unlinkQueue(name string) error                                 { return nil }

var errAgain = ErrUnsupported
