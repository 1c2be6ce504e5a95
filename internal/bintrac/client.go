// Package bintrac is a Modbus TCP client for the BinTrac HouseLink weight
// instrument. Each bin weight occupies two consecutive input registers; a
// read opens a fresh TCP connection, performs one bounded request/response
// exchange, and closes it again. The deployed HouseLink firmware caps a
// single read at 6 registers, so bin D is fetched separately.
package bintrac

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"feeder_control/internal/logger"
)

// NumBins is the number of bins (A-D) a HouseLink installation can report.
const NumBins = 4

const (
	binARegister    = 1000
	registersPerBin = 2
	batchRegisters  = 6 // firmware limit: bins A-C in one read
	binDRegister    = binARegister + 3*registersPerBin

	functionReadInputRegisters = 0x04

	// disabledSentinel marks a bin the instrument has not enabled.
	disabledSentinel = -32767

	defaultTimeout    = 5 * time.Second
	defaultRetryDelay = 2 * time.Second
	staleAfter        = 30 * time.Second
)

// Client reads bin weights from a HouseLink instrument. All exported
// methods are safe for concurrent use; the blocking read itself is bounded
// by the configured timeout.
type Client struct {
	log *logger.Logger

	now  func() time.Time
	dial func(addr string, timeout time.Duration) (net.Conn, error)

	mu                 sync.Mutex
	addr               string
	deviceID           byte
	timeout            time.Duration
	retryDelay         time.Duration
	txnID              uint16
	connected          bool
	lastError          string
	lastReadTime       time.Time
	lastConnectAttempt time.Time
}

// NewClient returns a client for the instrument at addr ("host:port").
func NewClient(addr string, deviceID byte, log *logger.Logger) *Client {
	return &Client{
		log:        log,
		now:        time.Now,
		dial:       dialTCP,
		addr:       addr,
		deviceID:   deviceID,
		timeout:    defaultTimeout,
		retryDelay: defaultRetryDelay,
		lastError:  "Not initialized",
	}
}

func dialTCP(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}

// SetConnection updates the instrument endpoint and device id.
func (c *Client) SetConnection(addr string, deviceID byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr = addr
	c.deviceID = deviceID
}

// ReadAllBins reads every bin weight. Bins A-C come from one batch read;
// bin D sits past the firmware's register limit and is fetched separately,
// with a failure there degrading to 0 rather than failing the whole read.
func (c *Client) ReadAllBins() ([NumBins]float64, error) {
	var weights [NumBins]float64

	var regs [batchRegisters]uint16
	if err := c.read(binARegister, regs[:]); err != nil {
		c.setFailure(err)
		return weights, err
	}
	for i := 0; i < 3; i++ {
		weights[i] = decodeWeight(regs[i*registersPerBin], regs[i*registersPerBin+1])
	}

	var dRegs [registersPerBin]uint16
	if err := c.read(binDRegister, dRegs[:]); err == nil {
		weights[3] = decodeWeight(dRegs[0], dRegs[1])
	}

	c.setSuccess()
	return weights, nil
}

// ReadBin reads a single bin weight by index (0-3 for bins A-D).
func (c *Client) ReadBin(index int) (float64, error) {
	if index < 0 || index >= NumBins {
		err := fmt.Errorf("invalid bin index: %d", index)
		c.setFailure(err)
		return 0, err
	}

	var regs [registersPerBin]uint16
	if err := c.read(binARegister+uint16(index)*registersPerBin, regs[:]); err != nil {
		c.setFailure(err)
		return 0, err
	}

	c.setSuccess()
	return decodeWeight(regs[0], regs[1]), nil
}

// Reconnect attempts to validate connectivity with an exploratory read of
// bin A. Attempts within the retry delay of the previous one are suppressed
// and return the last known connection state.
func (c *Client) Reconnect() bool {
	c.mu.Lock()
	if c.now().Sub(c.lastConnectAttempt) < c.retryDelay {
		connected := c.connected
		c.mu.Unlock()
		return connected
	}
	c.lastConnectAttempt = c.now()
	addr := c.addr
	deviceID := c.deviceID
	c.mu.Unlock()

	if addr == "" {
		c.setFailure(errors.New("no instrument address configured"))
		return false
	}

	var regs [registersPerBin]uint16
	if err := c.read(binARegister, regs[:]); err != nil {
		c.setFailure(err)
		return false
	}

	c.setSuccess()
	c.log.Infow("instrument connected", "addr", addr, "device_id", deviceID)
	return true
}

// IsConnected reports connectivity. The client counts as connected only if
// a read succeeded within the last 30 seconds.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected && c.now().Sub(c.lastReadTime) > staleAfter {
		c.connected = false
		c.lastError = "Connection timeout"
	}
	return c.connected
}

// LastError returns a human-readable description of the last failure, or
// "Connected" after a successful read.
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// read performs one Modbus TCP transaction: read len(dst) input registers
// starting at startAddr. dst is written only after the complete payload
// arrived, so a failed read never leaves a partially decoded buffer.
func (c *Client) read(startAddr uint16, dst []uint16) error {
	c.mu.Lock()
	addr := c.addr
	deviceID := c.deviceID
	timeout := c.timeout
	c.txnID++
	txn := c.txnID
	c.mu.Unlock()

	count := uint16(len(dst))

	conn, err := c.dial(addr, timeout)
	if err != nil {
		return &ConnectionError{Endpoint: addr, Err: err}
	}
	defer conn.Close()

	// MBAP header + read-input-registers PDU, 12 bytes total.
	var req [12]byte
	binary.BigEndian.PutUint16(req[0:2], txn)
	binary.BigEndian.PutUint16(req[2:4], 0) // protocol id, always 0
	binary.BigEndian.PutUint16(req[4:6], 6) // bytes remaining after this field
	req[6] = deviceID
	req[7] = functionReadInputRegisters
	binary.BigEndian.PutUint16(req[8:10], startAddr)
	binary.BigEndian.PutUint16(req[10:12], count)

	_ = conn.SetDeadline(c.now().Add(timeout))

	if _, err := conn.Write(req[:]); err != nil {
		return &ConnectionError{Endpoint: addr, Err: err}
	}

	var header [9]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		if isTimeout(err) {
			return &TimeoutError{Endpoint: addr, Waiting: "response header"}
		}
		return &ConnectionError{Endpoint: addr, Err: err}
	}

	// High bit in the function code marks a device-reported exception; the
	// byte after it carries the exception code.
	if header[7]&0x80 != 0 {
		return &ProtocolError{
			ExceptionCode: header[8],
			Detail:        fmt.Sprintf("device %d rejected read at address %d", deviceID, startAddr),
		}
	}

	byteCount := int(header[8])
	if byteCount != int(count)*2 {
		return &ProtocolError{
			Detail: fmt.Sprintf("unexpected byte count: expected %d, got %d", count*2, byteCount),
		}
	}

	payload := make([]byte, byteCount)
	if _, err := io.ReadFull(conn, payload); err != nil {
		if isTimeout(err) {
			return &TimeoutError{Endpoint: addr, Waiting: "data bytes"}
		}
		return &ConnectionError{Endpoint: addr, Err: err}
	}

	for i := range dst {
		dst[i] = binary.BigEndian.Uint16(payload[i*2 : i*2+2])
	}
	return nil
}

func (c *Client) setSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	c.lastError = "Connected"
	c.lastReadTime = c.now()
}

func (c *Client) setFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.lastError = err.Error()
}

// decodeWeight assembles two big-endian registers into a signed 32-bit
// weight, high word first. The disabled-bin sentinel decodes to 0.
func decodeWeight(hi, lo uint16) float64 {
	v := int32(uint32(hi)<<16 | uint32(lo))
	if v == disabledSentinel {
		return 0
	}
	return float64(v)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
