package logging

import (
	"encoding/json"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bartossh/MetroWallet/logger"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"
	levelFatal = "fatal"
)

// Helper helps with writing logs to io.Writers.
// Helper implements logger.Logger interface.
// Writing is done concurrently with out blocking the current thread.
type Helper struct {
	callOnErr   func(error)
	callOnFatal func(error)
	service     string
	writers     []io.Writer
}

// New creates new Helper for the named service.
// The callOnErr is called when writing to any of the writers fails,
// the callOnFatal is called after the fatal log is written.
func New(service string, callOnErr, callOnFatal func(error), writers ...io.Writer) Helper {
	return Helper{service: service, callOnErr: callOnErr, callOnFatal: callOnFatal, writers: writers}
}

// Debug writes debug log.
func (h Helper) Debug(msg string) {
	h.write(h.newLog(levelDebug, msg))
}

// Info writes info log.
func (h Helper) Info(msg string) {
	h.write(h.newLog(levelInfo, msg))
}

// Warn writes warning log.
func (h Helper) Warn(msg string) {
	h.write(h.newLog(levelWarn, msg))
}

// Error writes error log.
func (h Helper) Error(msg string) {
	h.write(h.newLog(levelError, msg))
}

// Fatal writes fatal log synchronously and calls the fatal callback.
func (h Helper) Fatal(msg string) {
	l := h.newLog(levelFatal, msg)
	err := h.writeAll(l)
	if h.callOnFatal != nil {
		if err == nil {
			err = &fatalError{msg: msg}
		}
		h.callOnFatal(err)
	}
}

func (h Helper) newLog(level, msg string) *logger.Log {
	return &logger.Log{
		ID:        primitive.NewObjectID(),
		CreatedAt: time.Now(),
		Level:     level,
		Service:   h.service,
		Msg:       msg,
	}
}

func (h Helper) write(l *logger.Log) {
	go func() {
		if err := h.writeAll(l); err != nil && h.callOnErr != nil {
			h.callOnErr(err)
		}
	}()
}

func (h Helper) writeAll(l *logger.Log) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	var last error
	for _, w := range h.writers {
		if _, err := w.Write(raw); err != nil {
			last = err
		}
	}
	return last
}

type fatalError struct {
	msg string
}

func (e *fatalError) Error() string {
	return "fatal: " + e.msg
}
