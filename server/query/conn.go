package query

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math/rand/v2"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	typeHandshake   = 0x09
	typeInformation = 0x00

	// tokenLifetime is how long a challenge token handed out in a handshake
	// stays valid.
	tokenLifetime = 30 * time.Second
	// maxTokens bounds the number of outstanding challenge tokens.
	maxTokens = 4096
)

var (
	magic     = [...]byte{0xfe, 0xfd}
	splitNum  = [...]byte{'S', 'P', 'L', 'I', 'T', 'N', 'U', 'M', 0x00, 0x80, 0x00}
	playerKey = [...]byte{0x00, 0x01, 'p', 'l', 'a', 'y', 'e', 'r', '_', 0x00, 0x00}
)

// packetConn answers query requests read from the wrapped PacketConn and
// passes every other datagram on to the caller.
type packetConn struct {
	net.PacketConn

	log      *slog.Logger
	provider Provider
	host     string
	port     int

	mu     sync.Mutex
	tokens map[string]challenge
}

type challenge struct {
	value  int32
	expiry time.Time
}

func newPacketConn(conn net.PacketConn, p Provider, log *slog.Logger) *packetConn {
	c := &packetConn{PacketConn: conn, log: log, provider: p, tokens: make(map[string]challenge)}
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		c.port = addr.Port
		if addr.IP != nil && !addr.IP.IsUnspecified() {
			c.host = addr.IP.String()
		}
	}
	return c
}

// ReadFrom reads the next datagram that is not a query request.
func (c *packetConn) ReadFrom(p []byte) (int, net.Addr, error) {
	for {
		n, addr, err := c.PacketConn.ReadFrom(p)
		if err != nil || n == 0 {
			return n, addr, err
		}
		if !c.handle(p[:n], addr) {
			return n, addr, nil
		}
	}
}

// handle answers b if it is a query request and reports if it was one.
func (c *packetConn) handle(b []byte, addr net.Addr) bool {
	if len(b) < 7 || b[0] != magic[0] || b[1] != magic[1] {
		return false
	}
	sequence := int32(binary.BigEndian.Uint32(b[3:7]))
	switch b[2] {
	case typeHandshake:
		c.handshake(addr, sequence)
	case typeInformation:
		if value, ok := parseToken(b[7:]); ok && c.consume(addr.String(), value) {
			c.information(addr, sequence)
		}
	default:
		return false
	}
	return true
}

func (c *packetConn) handshake(addr net.Addr, sequence int32) {
	value := c.issue(addr.String())

	buf := bytes.NewBuffer(make([]byte, 0, 17))
	buf.WriteByte(typeHandshake)
	_ = binary.Write(buf, binary.BigEndian, sequence)
	buf.WriteString(strconv.FormatInt(int64(value), 10))
	buf.WriteByte(0x00)
	c.write(buf.Bytes(), addr)
}

func (c *packetConn) information(addr net.Addr, sequence int32) {
	var data Data
	if c.provider != nil {
		data = c.provider.QueryData()
	}

	buf := bytes.NewBuffer(make([]byte, 0, 512))
	buf.WriteByte(typeInformation)
	_ = binary.Write(buf, binary.BigEndian, sequence)
	buf.Write(splitNum[:])
	for _, kv := range data.pairs(c.host, c.port) {
		buf.WriteString(kv.key)
		buf.WriteByte(0x00)
		buf.WriteString(kv.value)
		buf.WriteByte(0x00)
	}
	buf.WriteByte(0x00)
	buf.Write(playerKey[:])
	for _, name := range data.Players {
		buf.WriteString(name)
		buf.WriteByte(0x00)
	}
	buf.WriteByte(0x00)
	c.write(buf.Bytes(), addr)
}

func (c *packetConn) write(b []byte, addr net.Addr) {
	if _, err := c.PacketConn.WriteTo(b, addr); err != nil {
		c.log.Debug("Write query response.", "raddr", addr.String(), "error", err)
	}
}

// issue hands out a new challenge token for addr.
func (c *packetConn) issue(addr string) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if len(c.tokens) >= maxTokens {
		for k, t := range c.tokens {
			if now.After(t.expiry) {
				delete(c.tokens, k)
			}
		}
	}
	value := rand.Int32()
	c.tokens[addr] = challenge{value: value, expiry: now.Add(tokenLifetime)}
	return value
}

// consume reports if value is the live token of addr. A token may be used
// more than once until it expires.
func (c *packetConn) consume(addr string, value int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tokens[addr]
	if !ok || time.Now().After(t.expiry) || t.value != value {
		delete(c.tokens, addr)
		return false
	}
	return true
}

// parseToken reads the challenge token of a full information request. Clients
// send it either as a big endian int32 or as ASCII digits.
func parseToken(payload []byte) (int32, bool) {
	if i := bytes.Index(payload, []byte{0xff, 0xff, 0xff, 0x01}); i >= 0 {
		payload = payload[:i]
	}
	if digits := bytes.TrimRight(payload, "\x00"); len(digits) > 0 {
		if v, err := strconv.ParseInt(string(digits), 10, 32); err == nil {
			return int32(v), true
		}
	}
	if len(payload) >= 4 {
		return int32(binary.BigEndian.Uint32(payload[:4])), true
	}
	return 0, false
}
