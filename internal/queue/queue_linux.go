//go:build linux

package queue

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// errAgain is the sentinel the platform layer maps EAGAIN to, so the
// cross-platform queue.go can classify it without importing unix
// itself.
var errAgain = unix.EAGAIN

func createOwnQueue(name string, maxMsg, msgSize int) (int, error) {
	_ = unix.Mq_unlink(name) // best effort; a missing queue is not an error

	attr := &unix.MqAttr{
		Maxmsg:  int64(maxMsg),
		Msgsize: int64(msgSize),
	}
	fd, err := unix.Mq_open(name, unix.O_CREAT|unix.O_RDONLY|unix.O_NONBLOCK, 0666, attr)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

func openSendOnly(name string) (int, error) {
	fd, err := unix.Mq_open(name, unix.O_WRONLY|unix.O_NONBLOCK, 0, nil)
	if err != nil {
		return -1, fmt.Errorf("%w: %s: %v", ErrSendFailed, name, err)
	}
	return fd, nil
}

func sendNonBlocking(fd int, buf []byte) error {
	return unix.Mq_timedsend(fd, buf, 0, nil)
}

func receiveNonBlocking(fd int, buf []byte) (int, error) {
	n, err := unix.Mq_timedreceive(fd, buf, nil, nil)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func queueMsgSize(fd int) (int, error) {
	var cur unix.MqAttr
	if err := unix.Mq_getsetattr(fd, nil, &cur); err != nil {
		return 0, err
	}
	return int(cur.Msgsize), nil
}

func closeFD(fd int) error {
	return unix.Close(fd)
}

func unlinkQueue(name string) error {
	err := unix.Mq_unlink(name)
	if errors.Is(err, unix.ENOENT) {
		return nil
	}
	return err
}
