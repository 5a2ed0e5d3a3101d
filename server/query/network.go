package query

import (
	"context"
	"log/slog"
	"net"

	"github.com/sandertv/go-raknet"
	"github.com/sandertv/gophertunnel/minecraft"
)

// Register replaces the "raknet" network of gophertunnel with one that also
// answers query requests, reporting the state supplied by p. It must be called
// before the server starts listening.
func Register(p Provider, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	minecraft.RegisterNetwork("raknet", func(l *slog.Logger) minecraft.Network {
		return network{log: l, query: log.With("subsystem", "query"), provider: p}
	})
}

type network struct {
	log      *slog.Logger
	query    *slog.Logger
	provider Provider
}

// DialContext ...
func (n network) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return raknet.Dialer{ErrorLog: n.log.With("net origin", "raknet")}.DialContext(ctx, address)
}

// PingContext ...
func (n network) PingContext(ctx context.Context, address string) ([]byte, error) {
	return raknet.Dialer{ErrorLog: n.log.With("net origin", "raknet")}.PingContext(ctx, address)
}

// Listen listens for RakNet connections on address. Query datagrams arriving
// on the same socket are answered directly.
func (n network) Listen(address string) (minecraft.NetworkListener, error) {
	return raknet.ListenConfig{
		ErrorLog:               n.log.With("net origin", "raknet"),
		UpstreamPacketListener: packetListener{log: n.query, provider: n.provider},
	}.Listen(address)
}

type packetListener struct {
	log      *slog.Logger
	provider Provider
}

// ListenPacket ...
func (l packetListener) ListenPacket(network, address string) (net.PacketConn, error) {
	conn, err := net.ListenPacket(network, address)
	if err != nil {
		return nil, err
	}
	return newPacketConn(conn, l.provider, l.log), nil
}
