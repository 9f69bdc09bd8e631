package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	payload string
	from    Addr
}

func collector() (Handler, <-chan received) {
	ch := make(chan received, 16)
	return func(payload []byte, from Addr) {
		ch <- received{payload: string(payload), from: from}
	}, ch
}

func expect(t *testing.T, ch <-chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no datagram received")
		return received{}
	}
}

func expectNone(t *testing.T, ch <-chan received) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("unexpected datagram %q from %s", r.payload, r.from)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Addr
		wantErr bool
	}{
		{name: "ipv4", input: "10.0.0.1:3024", want: Addr{IP: "10.0.0.1", Port: 3024}},
		{name: "hostname", input: "localhost:80", want: Addr{IP: "localhost", Port: 80}},
		{name: "missing port", input: "10.0.0.1", wantErr: true},
		{name: "port out of range", input: "10.0.0.1:70000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddr(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestUDPLoopback(t *testing.T) {
	a := NewUDP("127.0.0.1", nil)
	b := NewUDP("127.0.0.1", nil)
	defer a.Close()
	defer b.Close()

	handlerA, _ := collector()
	handlerB, gotB := collector()
	require.NoError(t, a.Listen(0, handlerA))
	require.NoError(t, b.Listen(0, handlerB))

	portA := a.LocalAddr().Port
	portB := b.LocalAddr().Port

	require.NoError(t, a.Send([]byte("hello"), Addr{IP: "127.0.0.1", Port: portB}))

	r := expect(t, gotB)
	assert.Equal(t, "hello", r.payload)
	assert.Equal(t, portA, r.from.Port, "source port should be the listening port")
}

func TestUDPSendBeforeListen(t *testing.T) {
	u := NewUDP("127.0.0.1", nil)
	err := u.Send([]byte("x"), Addr{IP: "127.0.0.1", Port: 9})
	assert.ErrorIs(t, err, ErrNotListening)
}

func TestUDPCloseIdempotent(t *testing.T) {
	u := NewUDP("127.0.0.1", nil)
	handler, _ := collector()
	require.NoError(t, u.Listen(0, handler))

	assert.NoError(t, u.Close())
	assert.NoError(t, u.Close())
	assert.Nil(t, u.LocalAddr())

	assert.ErrorIs(t, u.Send([]byte("x"), Addr{IP: "127.0.0.1", Port: 9}), ErrClosed)
	assert.ErrorIs(t, u.Listen(0, handler), ErrClosed)
}

func TestUDPRebind(t *testing.T) {
	u := NewUDP("127.0.0.1", nil)
	defer u.Close()

	handler, got := collector()
	require.NoError(t, u.Listen(0, handler))
	first := u.LocalAddr().Port
	require.NoError(t, u.Listen(0, handler))
	second := u.LocalAddr().Port

	sender := NewUDP("127.0.0.1", nil)
	defer sender.Close()
	senderHandler, _ := collector()
	require.NoError(t, sender.Listen(0, senderHandler))

	require.NoError(t, sender.Send([]byte("after-rebind"), Addr{IP: "127.0.0.1", Port: second}))
	assert.Equal(t, "after-rebind", expect(t, got).payload)

	if first != second {
		// The old socket is released, so nothing is read from it anymore.
		require.NoError(t, sender.Send([]byte("stale"), Addr{IP: "127.0.0.1", Port: first}))
		expectNone(t, got)
	}
}

func TestMemoryUnicast(t *testing.T) {
	network := NewNetwork()
	a := network.Endpoint("10.0.0.1")
	b := network.Endpoint("10.0.0.2")
	defer a.Close()
	defer b.Close()

	handlerA, gotA := collector()
	handlerB, gotB := collector()
	require.NoError(t, a.Listen(3024, handlerA))
	require.NoError(t, b.Listen(3024, handlerB))

	require.NoError(t, a.Send([]byte("one"), Addr{IP: "10.0.0.2", Port: 3024}))
	require.NoError(t, a.Send([]byte("two"), Addr{IP: "10.0.0.2", Port: 3024}))

	first := expect(t, gotB)
	assert.Equal(t, "one", first.payload)
	assert.Equal(t, Addr{IP: "10.0.0.1", Port: 3024}, first.from)
	assert.Equal(t, "two", expect(t, gotB).payload, "arrival order is preserved")
	expectNone(t, gotA)
}

func TestMemoryBroadcast(t *testing.T) {
	network := NewNetwork()
	a := network.Endpoint("10.0.0.1")
	b := network.Endpoint("10.0.0.2")
	c := network.Endpoint("10.0.0.3")
	defer a.Close()
	defer b.Close()
	defer c.Close()

	handlerA, gotA := collector()
	handlerB, gotB := collector()
	handlerC, gotC := collector()
	require.NoError(t, a.Listen(3024, handlerA))
	require.NoError(t, b.Listen(3024, handlerB))
	require.NoError(t, c.Listen(4000, handlerC))

	require.NoError(t, a.Send([]byte("hi"), Addr{IP: LimitedBroadcast, Port: 3024}))

	assert.Equal(t, "hi", expect(t, gotA).payload, "broadcast loops back to the sender")
	assert.Equal(t, "hi", expect(t, gotB).payload)
	expectNone(t, gotC)
}

func TestMemorySubnetBroadcast(t *testing.T) {
	network := NewNetwork()
	network.SetBroadcastAddress("10.0.0.255")
	a := network.Endpoint("10.0.0.1")
	b := network.Endpoint("10.0.0.2")
	defer a.Close()
	defer b.Close()

	handlerA, _ := collector()
	handlerB, gotB := collector()
	require.NoError(t, a.Listen(3024, handlerA))
	require.NoError(t, b.Listen(3024, handlerB))

	require.NoError(t, a.Send([]byte("subnet"), Addr{IP: "10.0.0.255", Port: 3024}))
	assert.Equal(t, "subnet", expect(t, gotB).payload)
}

func TestMemoryAddressInUse(t *testing.T) {
	network := NewNetwork()
	a := network.Endpoint("10.0.0.1")
	dup := network.Endpoint("10.0.0.1")
	defer a.Close()
	defer dup.Close()

	handler, _ := collector()
	require.NoError(t, a.Listen(3024, handler))
	assert.Error(t, dup.Listen(3024, handler))
	assert.NoError(t, dup.Listen(3025, handler))
}

func TestMemoryClose(t *testing.T) {
	network := NewNetwork()
	a := network.Endpoint("10.0.0.1")
	b := network.Endpoint("10.0.0.2")
	defer a.Close()

	handlerA, _ := collector()
	handlerB, gotB := collector()
	require.NoError(t, a.Listen(3024, handlerA))
	require.NoError(t, b.Listen(3024, handlerB))

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())

	require.NoError(t, a.Send([]byte("gone"), Addr{IP: "10.0.0.2", Port: 3024}))
	expectNone(t, gotB)
	assert.ErrorIs(t, b.Send([]byte("x"), Addr{IP: "10.0.0.1", Port: 3024}), ErrClosed)
}
