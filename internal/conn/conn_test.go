package conn

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// pipe returns a Conn on one end of an in-memory stream and the raw peer end.
func pipe(t *testing.T, opts Options) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	opts.Logger = quietLogger()
	c := New(server, opts)
	t.Cleanup(func() {
		_ = client.Close()
		_ = c.Close()
	})
	return c, client
}

func TestReceiveDecodesFrames(t *testing.T) {
	c, peer := pipe(t, Options{})

	go func() {
		_, _ = io.WriteString(peer, `{"type":"action","payload":{"kind":"draw"}}`+"\n")
		_, _ = io.WriteString(peer, "not json\n")
	}()

	in, status := c.Receive(context.Background(), time.Second)
	require.Equal(t, RecvOK, status)
	require.NoError(t, in.Err)
	assert.Equal(t, protocol.Action{Kind: protocol.ActionDraw}, in.Msg)

	in, status = c.Receive(context.Background(), time.Second)
	require.Equal(t, RecvOK, status)
	assert.ErrorIs(t, in.Err, protocol.ErrMalformed)
}

func TestReceiveTimeoutAndCancel(t *testing.T) {
	c, _ := pipe(t, Options{})

	_, status := c.Receive(context.Background(), 20*time.Millisecond)
	assert.Equal(t, RecvTimeout, status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, status = c.Receive(ctx, time.Second)
	assert.Equal(t, RecvCanceled, status)
}

func TestReceiveClosedOnPeerHangup(t *testing.T) {
	c, peer := pipe(t, Options{})
	require.NoError(t, peer.Close())

	_, status := c.Receive(context.Background(), time.Second)
	assert.Equal(t, RecvClosed, status)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("connection not done after peer hangup")
	}
	assert.ErrorIs(t, c.Err(), io.EOF)
	assert.ErrorIs(t, c.Send(protocol.Info{Text: "late"}), ErrClosed)
}

func TestSendWritesDelimitedFrames(t *testing.T) {
	c, peer := pipe(t, Options{})

	require.NoError(t, c.Send(protocol.Info{Text: "one"}))
	require.NoError(t, c.Send(protocol.Info{Text: "two"}))

	r := bufio.NewReader(peer)
	for _, want := range []string{"one", "two"} {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		msg, err := protocol.Decode([]byte(strings.TrimSpace(line)))
		require.NoError(t, err)
		assert.Equal(t, protocol.Info{Text: want}, msg)
	}
}

func TestSendSlowConsumer(t *testing.T) {
	// Nobody reads the peer end: the writer blocks on the first frame and the
	// queue fills.
	c, _ := pipe(t, Options{SendQueue: 2, WriteTimeout: time.Second})

	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = c.Send(protocol.Info{Text: "flood"})
	}
	assert.ErrorIs(t, err, ErrSlowConsumer)
}

func TestCloseFlushesQueue(t *testing.T) {
	c, peer := pipe(t, Options{})

	lines := make(chan string, 4)
	go func() {
		r := bufio.NewReader(peer)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()

	require.NoError(t, c.Send(protocol.Info{Text: "bye"}))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second Close must be harmless")

	got := <-lines
	assert.Contains(t, got, "bye")
	_, open := <-lines
	assert.False(t, open, "stream should end after Close")
	assert.NoError(t, c.Err(), "local close is not an error")
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	c, peer := pipe(t, Options{MaxFrameBytes: 32})

	go func() {
		_, _ = io.WriteString(peer, strings.Repeat("x", 100)+"\n")
	}()

	_, status := c.Receive(context.Background(), time.Second)
	assert.Equal(t, RecvClosed, status)
	<-c.Done()
	assert.ErrorIs(t, c.Err(), ErrFrameTooLarge)
}

func TestIDsAreUnique(t *testing.T) {
	a, _ := pipe(t, Options{})
	b, _ := pipe(t, Options{})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEmpty(t, a.ID())
}
