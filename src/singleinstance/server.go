package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

type tcpServer struct {
	mu       sync.Mutex
	lis      net.Listener
	incoming chan *tcpConn
	done     chan struct{}
	// failed is closed when the accept loop dies on its own; acceptErr says why.
	failed    chan struct{}
	acceptErr error
	port      int
}

func newTCPServer() *tcpServer {
	return &tcpServer{
		incoming: make(chan *tcpConn, 8),
		done:     make(chan struct{}),
		failed:   make(chan struct{}),
	}
}

// Start binds ONLY the start port of the configured range. If occupied, fail.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	start, _ := PortRange()
	addr := net.JoinHostPort(residentHost, fmt.Sprint(start))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		return err
	}
	s.lis = lis
	s.port = start
	log.Printf("singleinstance: listening on %s", addr)
	go s.acceptLoop(ctx, lis)
	return nil
}

func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("singleinstance: accept failed, delegation stopped: %v", err)
				s.mu.Lock()
				s.acceptErr = err
				s.mu.Unlock()
				close(s.failed)
			}
			return
		}
		if conn := s.handshake(c); conn != nil {
			select {
			case s.incoming <- conn:
			case <-s.done:
				_ = c.Close()
				return
			case <-ctx.Done():
				_ = c.Close()
				return
			}
		}
	}
}

// handshake answers PING and rejects malformed requests itself; only valid
// trigger requests are handed to Next.
func (s *tcpServer) handshake(c net.Conn) *tcpConn {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	br := bufio.NewReader(c)
	bw := bufio.NewWriter(c)
	line, _ := br.ReadString('\n')

	if line == pingRequest {
		log.Printf("singleinstance: PING from %s -> PONG", remote)
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return nil
	}

	mode, ok := parseTrigger(line)
	if !ok {
		log.Printf("singleinstance: malformed request from %s: %q", remote, strings.TrimSpace(line))
		_, _ = bw.WriteString(errorLine + "malformed request")
		_ = bw.Flush()
		_ = c.Close()
		return nil
	}
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	log.Printf("singleinstance: TRIGGER %s from %s", mode, remote)
	return &tcpConn{c: c, r: Request{Mode: mode}, w: bw}
}

func parseTrigger(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != triggerVerb {
		return "", false
	}
	return fields[1], true
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, net.ErrClosed
	case <-s.failed:
		s.mu.Lock()
		defer s.mu.Unlock()
		return nil, fmt.Errorf("accepting connections: %w", s.acceptErr)
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	if s.lis != nil {
		err := s.lis.Close()
		s.lis = nil
		return err
	}
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess() error {
	if _, err := tc.w.WriteString(successLine); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorLine + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
