package command

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/protocol"
)

const (
	datagramBufferBytes = 8192
	defaultSrcAddr      = "localhost"
)

// NetDispatcher exchanges one datagram request/response with a responder.
type NetDispatcher struct {
	transport config.NetTransport
	exec      Executor
	logger    *slog.Logger
}

func (d *NetDispatcher) Dispatch(ctx context.Context, text string) {
	ctx = context.WithoutCancel(ctx)
	log := invocation(d.logger, config.CommandNet).With("dst", d.dst())

	go func() {
		resp, err := d.exchange(text)
		if err != nil {
			log.Error("net command failed", "error", err.Error())
			return
		}
		act(ctx, log, d.exec, resp)
	}()
}

func (d *NetDispatcher) dst() string {
	return net.JoinHostPort(d.transport.DstAddr, strconv.Itoa(d.transport.DstPort))
}

func (d *NetDispatcher) exchange(text string) (protocol.Response, error) {
	srcAddr := d.transport.SrcAddr
	if srcAddr == "" {
		srcAddr = defaultSrcAddr
	}
	laddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(srcAddr, strconv.Itoa(d.transport.SrcPort)))
	if err != nil {
		return protocol.Response{}, fmt.Errorf("resolve source address: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", d.dst())
	if err != nil {
		return protocol.Response{}, fmt.Errorf("resolve destination address: %w", err)
	}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("bind %s: %w", laddr, err)
	}
	defer conn.Close()

	if d.transport.TimeoutMS > 0 {
		if err := conn.SetDeadline(time.Now().Add(time.Duration(d.transport.TimeoutMS) * time.Millisecond)); err != nil {
			return protocol.Response{}, fmt.Errorf("set deadline: %w", err)
		}
	}

	payload, err := protocol.EncodePayload(protocol.Payload{Text: text})
	if err != nil {
		return protocol.Response{}, err
	}
	if _, err := conn.Write(payload); err != nil {
		return protocol.Response{}, fmt.Errorf("send payload: %w", err)
	}

	buf := make([]byte, datagramBufferBytes)
	n, err := conn.Read(buf)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("receive response: %w", err)
	}
	return protocol.DecodeResponse(buf[:n])
}
