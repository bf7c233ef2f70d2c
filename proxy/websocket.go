package proxy

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// dialTimeout bounds the upstream WebSocket dial.
const dialTimeout = 10 * time.Second

// ProxyWebSocket splices a hijacked client connection onto a fresh upstream
// connection for the lifetime of a WebSocket session.
//
// It dials the upstream, replays the client's upgrade request with
// Connection/Upgrade forced and extra identity headers merged in, relays the
// upstream's 101 status line and header block verbatim onto the raw client
// connection, flushes any payload bytes either side already buffered, then
// copies both directions until one side closes. A close or error on either
// side force-closes the other; neither socket is left half-open.
//
// clientBuf carries bytes the HTTP server read past the upgrade request's
// header block before the hijack.
func (p *Proxy) ProxyWebSocket(clientConn net.Conn, clientBuf *bufio.Reader, r *http.Request, upstream string, extra http.Header) {
	defer clientConn.Close()

	upConn, err := dialUpstream(upstream)
	if err != nil {
		p.logger.Error("WebSocket upstream dial failed", "upstream", upstream, "error", err)
		_, _ = io.WriteString(clientConn, "HTTP/1.1 502 Bad Gateway\r\n\r\n")
		return
	}
	pair := newConnPair(clientConn, upConn)
	defer pair.Close()

	if err := writeUpgradeRequest(upConn, r, upstream, extra); err != nil {
		p.logger.Error("WebSocket upgrade request failed", "upstream", upstream, "error", err)
		return
	}

	upReader := bufio.NewReader(upConn)
	resp, err := http.ReadResponse(upReader, r)
	if err != nil {
		p.logger.Error("WebSocket upgrade response unreadable", "upstream", upstream, "error", err)
		_, _ = io.WriteString(clientConn, "HTTP/1.1 502 Bad Gateway\r\n\r\n")
		return
	}

	// Relay the status line and header block exactly as the upstream sent them.
	if _, err := fmt.Fprintf(clientConn, "HTTP/%d.%d %s\r\n", resp.ProtoMajor, resp.ProtoMinor, resp.Status); err != nil {
		return
	}
	if err := resp.Header.Write(clientConn); err != nil {
		return
	}
	if _, err := io.WriteString(clientConn, "\r\n"); err != nil {
		return
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		// Upstream refused the upgrade; its body (if any) follows the header
		// block we already relayed.
		_, _ = io.Copy(clientConn, resp.Body)
		resp.Body.Close()
		return
	}

	// Flush payload bytes already sitting in either buffered reader.
	if n := upReader.Buffered(); n > 0 {
		if _, err := io.CopyN(clientConn, upReader, int64(n)); err != nil {
			return
		}
	}
	if clientBuf != nil {
		if n := clientBuf.Buffered(); n > 0 {
			if _, err := io.CopyN(upConn, clientBuf, int64(n)); err != nil {
				return
			}
		}
	}

	pair.Splice()
}

// dialUpstream opens a TCP (or TLS) connection to the upstream host.
func dialUpstream(upstream string) (net.Conn, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}

	secure := u.Scheme == "https" || u.Scheme == "wss"
	host := u.Host
	if u.Port() == "" {
		if secure {
			host = net.JoinHostPort(u.Hostname(), "443")
		} else {
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	if secure {
		return tls.DialWithDialer(&net.Dialer{Timeout: dialTimeout}, "tcp", host, &tls.Config{ServerName: u.Hostname()})
	}
	return net.DialTimeout("tcp", host, dialTimeout)
}

// writeUpgradeRequest replays the client's upgrade request to the upstream,
// forcing the upgrade handshake headers and merging identity headers in.
func writeUpgradeRequest(upConn net.Conn, r *http.Request, upstream string, extra http.Header) error {
	u, err := url.Parse(upstream)
	if err != nil {
		return err
	}

	header := make(http.Header)
	copyEndToEndHeaders(header, r.Header)
	for key, vals := range extra {
		header[http.CanonicalHeaderKey(key)] = vals
	}
	header.Set("Host", u.Host)
	header.Set("Origin", u.Scheme+"://"+u.Host)
	header.Set("Connection", "Upgrade")
	header.Set("Upgrade", "websocket")

	if _, err := fmt.Fprintf(upConn, "GET %s HTTP/1.1\r\n", r.URL.RequestURI()); err != nil {
		return err
	}
	if err := header.Write(upConn); err != nil {
		return err
	}
	_, err = io.WriteString(upConn, "\r\n")
	return err
}

// connPair is an explicitly paired client/upstream connection with symmetric
// close propagation: closing the pair closes both ends, and the first
// error or EOF on either copy direction tears the whole pair down. Sockets
// are released deterministically, never left to the collector.
type connPair struct {
	client   net.Conn
	upstream net.Conn
	once     sync.Once
}

func newConnPair(client, upstream net.Conn) *connPair {
	return &connPair{client: client, upstream: upstream}
}

// Close closes both ends. Safe to call from any goroutine, any number of times.
func (p *connPair) Close() {
	p.once.Do(func() {
		p.client.Close()
		p.upstream.Close()
	})
}

// Splice copies both directions until either side closes or errors, then
// closes both ends and returns.
func (p *connPair) Splice() {
	done := make(chan struct{}, 2)

	go func() {
		_, _ = io.Copy(p.upstream, p.client)
		p.Close()
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(p.client, p.upstream)
		p.Close()
		done <- struct{}{}
	}()

	<-done
	<-done
}
