package query

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"

	"go.uber.org/zap"
)

// LineServer serves the dispatcher over newline-delimited JSON: one
// Request per line in, one Response per line out. UDS and TCP share this
// loop; only the listener construction differs.
type LineServer struct {
	Dispatcher *Dispatcher
	Logger     *zap.Logger
}

// ServeUDS listens on a Unix domain socket at path, creating it with
// owner-only permissions (0600). Any existing socket file at path is
// removed first, matching the usual "stale socket from a prior run"
// cleanup idiom.
func (s *LineServer) ServeUDS(ctx context.Context, path string) error {
	_ = os.Remove(path)
	lis, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	defer lis.Close()
	if err := os.Chmod(path, 0600); err != nil {
		return err
	}
	return s.serve(ctx, lis)
}

// ServeTCP listens on addr with the identical line-JSON framing as ServeUDS.
func (s *LineServer) ServeTCP(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer lis.Close()
	return s.serve(ctx, lis)
}

func (s *LineServer) serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *LineServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(Response{Error: "bad request: invalid json: " + err.Error()})
			continue
		}
		resp := s.Dispatcher.Dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			s.Logger.Warn("line server: write failed", zap.Error(err))
			return
		}
	}
}
