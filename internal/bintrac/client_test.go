package bintrac

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"feeder_control/internal/logger"
)

// encodeWeight is the inverse of decodeWeight: split a signed 32-bit weight
// into two big-endian registers, high word first.
func encodeWeight(v int32) (hi, lo uint16) {
	return uint16(uint32(v) >> 16), uint16(uint32(v))
}

type clientClock struct {
	t time.Time
}

func (c *clientClock) Now() time.Time          { return c.t }
func (c *clientClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// fakeInstrument serves scripted Modbus TCP responses on a loopback listener.
// The handler receives the 12-byte request and returns the raw response, or
// nil to stall until the client gives up.
type fakeInstrument struct {
	ln      net.Listener
	handler func(req []byte) []byte
}

func newFakeInstrument(t *testing.T, handler func(req []byte) []byte) *fakeInstrument {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeInstrument{ln: ln, handler: handler}
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeInstrument) addr() string { return f.ln.Addr().String() }

func (f *fakeInstrument) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			req := make([]byte, 12)
			if _, err := io.ReadFull(conn, req); err != nil {
				return
			}
			resp := f.handler(req)
			if resp == nil {
				time.Sleep(2 * time.Second) // stall past the client timeout
				return
			}
			_, _ = conn.Write(resp)
		}(conn)
	}
}

// registerResponse builds a well-formed response carrying the given
// registers, echoing the request's transaction id.
func registerResponse(req []byte, regs []uint16) []byte {
	resp := make([]byte, 9+len(regs)*2)
	copy(resp[0:2], req[0:2])
	binary.BigEndian.PutUint16(resp[4:6], uint16(3+len(regs)*2))
	resp[6] = req[6]
	resp[7] = req[7]
	resp[8] = byte(len(regs) * 2)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[9+i*2:], r)
	}
	return resp
}

// exceptionResponse builds a device-reported exception for the request.
func exceptionResponse(req []byte, code byte) []byte {
	resp := make([]byte, 9)
	copy(resp[0:2], req[0:2])
	binary.BigEndian.PutUint16(resp[4:6], 3)
	resp[6] = req[6]
	resp[7] = req[7] | 0x80
	resp[8] = code
	return resp
}

func startAddrOf(req []byte) uint16 { return binary.BigEndian.Uint16(req[8:10]) }

func newTestClient(addr string) *Client {
	c := NewClient(addr, 1, logger.Get(logger.ErrorLevel))
	c.timeout = 500 * time.Millisecond
	return c
}

func TestDecodeWeight(t *testing.T) {
	cases := []struct {
		name string
		in   int32
		want float64
	}{
		{"zero", 0, 0},
		{"positive", 1234, 1234},
		{"negative", -500, -500},
		{"beyond 16 bits", 70000, 70000},
		{"negative beyond 16 bits", -70000, -70000},
		{"disabled sentinel", -32767, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hi, lo := encodeWeight(tc.in)
			if got := decodeWeight(hi, lo); got != tc.want {
				t.Errorf("decodeWeight(%d): want %v, got %v", tc.in, tc.want, got)
			}
		})
	}
}

func TestReadBin_DecodesSignedWeight(t *testing.T) {
	inst := newFakeInstrument(t, func(req []byte) []byte {
		if got, want := startAddrOf(req), uint16(1002); got != want {
			t.Errorf("start address: want %d, got %d", want, got)
		}
		hi, lo := encodeWeight(-500)
		return registerResponse(req, []uint16{hi, lo})
	})

	c := newTestClient(inst.addr())
	w, err := c.ReadBin(1)
	if err != nil {
		t.Fatalf("ReadBin: %v", err)
	}
	if w != -500 {
		t.Errorf("weight: want -500, got %v", w)
	}
	if !c.IsConnected() {
		t.Errorf("client must be connected after a successful read")
	}
}

func TestReadBin_InvalidIndex(t *testing.T) {
	c := newTestClient("127.0.0.1:1")
	if _, err := c.ReadBin(4); err == nil {
		t.Fatalf("expected error for bin index 4")
	}
}

func TestReadAllBins_BatchPlusBinD(t *testing.T) {
	inst := newFakeInstrument(t, func(req []byte) []byte {
		switch startAddrOf(req) {
		case 1000: // bins A-C, one register pair each
			aHi, aLo := encodeWeight(1500)
			bHi, bLo := encodeWeight(800)
			cHi, cLo := encodeWeight(-32767) // bin C disabled
			return registerResponse(req, []uint16{aHi, aLo, bHi, bLo, cHi, cLo})
		case 1006: // bin D
			hi, lo := encodeWeight(250)
			return registerResponse(req, []uint16{hi, lo})
		default:
			return exceptionResponse(req, 2)
		}
	})

	c := newTestClient(inst.addr())
	weights, err := c.ReadAllBins()
	if err != nil {
		t.Fatalf("ReadAllBins: %v", err)
	}
	want := [NumBins]float64{1500, 800, 0, 250}
	if weights != want {
		t.Errorf("weights: want %v, got %v", want, weights)
	}
}

func TestReadAllBins_BinDUnavailableDegrades(t *testing.T) {
	inst := newFakeInstrument(t, func(req []byte) []byte {
		if startAddrOf(req) == 1000 {
			hi, lo := encodeWeight(1500)
			return registerResponse(req, []uint16{hi, lo, 0, 0, 0, 0})
		}
		// firmware that cannot address bin D at all
		return exceptionResponse(req, 2)
	})

	c := newTestClient(inst.addr())
	weights, err := c.ReadAllBins()
	if err != nil {
		t.Fatalf("bin D failure must not fail the whole read: %v", err)
	}
	if weights[3] != 0 {
		t.Errorf("unreachable bin D: want 0, got %v", weights[3])
	}
	if weights[0] != 1500 {
		t.Errorf("bin A: want 1500, got %v", weights[0])
	}
}

func TestRead_ExceptionResponse(t *testing.T) {
	inst := newFakeInstrument(t, func(req []byte) []byte {
		return exceptionResponse(req, 3)
	})

	c := newTestClient(inst.addr())
	_, err := c.ReadBin(0)

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProtocolError, got %v", err)
	}
	if perr.ExceptionCode != 3 {
		t.Errorf("exception code: want 3, got %d", perr.ExceptionCode)
	}
	if c.IsConnected() {
		t.Errorf("client must not report connected after a failed read")
	}
}

func TestRead_ByteCountMismatchLeavesBufferUntouched(t *testing.T) {
	inst := newFakeInstrument(t, func(req []byte) []byte {
		// one register where two were requested
		return registerResponse(req, []uint16{0x1234})
	})

	c := newTestClient(inst.addr())
	buf := []uint16{0xAAAA, 0xBBBB}
	err := c.read(1000, buf)

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProtocolError, got %v", err)
	}
	if buf[0] != 0xAAAA || buf[1] != 0xBBBB {
		t.Errorf("buffer must be untouched on protocol error, got %v", buf)
	}
}

func TestRead_HeaderTimeout(t *testing.T) {
	inst := newFakeInstrument(t, func(req []byte) []byte {
		return nil // stall
	})

	c := newTestClient(inst.addr())
	_, err := c.ReadBin(0)

	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("want TimeoutError, got %v", err)
	}
}

func TestRead_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close() // nothing listening anymore

	c := newTestClient(addr)
	_, rerr := c.ReadBin(0)

	var cerr *ConnectionError
	if !errors.As(rerr, &cerr) {
		t.Fatalf("want ConnectionError, got %v", rerr)
	}
	if cerr.Endpoint != addr {
		t.Errorf("endpoint: want %s, got %s", addr, cerr.Endpoint)
	}
}

func TestReconnect_RateLimited(t *testing.T) {
	clk := &clientClock{t: time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)}
	c := newTestClient("127.0.0.1:1")
	c.now = clk.Now

	dials := 0
	c.dial = func(addr string, timeout time.Duration) (net.Conn, error) {
		dials++
		return nil, errors.New("connection refused")
	}

	clk.Advance(5 * time.Second) // move past the zero-value attempt time
	if c.Reconnect() {
		t.Fatalf("reconnect against nothing must fail")
	}
	if dials != 1 {
		t.Fatalf("dials: want 1, got %d", dials)
	}

	// Within the retry delay: suppressed, no new dial.
	clk.Advance(time.Second)
	if c.Reconnect() {
		t.Fatalf("suppressed reconnect must report last known state")
	}
	if dials != 1 {
		t.Errorf("suppressed reconnect must not dial, got %d dials", dials)
	}

	clk.Advance(3 * time.Second)
	c.Reconnect()
	if dials != 2 {
		t.Errorf("reconnect after the delay must dial again, got %d dials", dials)
	}
}

func TestIsConnected_StaleAfterThirtySeconds(t *testing.T) {
	clk := &clientClock{t: time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)}
	c := newTestClient("127.0.0.1:1")
	c.now = clk.Now

	c.setSuccess()
	if !c.IsConnected() {
		t.Fatalf("expected connected after a successful read")
	}

	clk.Advance(31 * time.Second)
	if c.IsConnected() {
		t.Fatalf("expected stale connection after 30s without a read")
	}
	if got := c.LastError(); got != "Connection timeout" {
		t.Errorf("last error: want %q, got %q", "Connection timeout", got)
	}
}
