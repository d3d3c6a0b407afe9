package rtc

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var errSendFailed = errors.New("send failed")

type fakeConn struct {
	id string

	mu       sync.Mutex
	sent     []interface{}
	failSend bool
	closed   bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errSendFailed
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) messages() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.sent...)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testEntry() *logrus.Entry {
	return logrus.NewEntry(testLogger())
}
