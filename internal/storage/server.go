package storage

import (
	"encoding/json"
	"errors"
	"net"
)

var errUnknownOp = errors.New("storage: unknown op")

// Server exposes one Storage to Clients over a listener.
type Server struct {
	store Storage
	// OnError, when set, receives accept and connection errors.
	OnError func(error)
}

func NewServer(store Storage) *Server {
	return &Server{store: store}
}

// Serve accepts connections until l is closed. Each connection is handled on
// its own goroutine and may carry any number of requests.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.report(err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) report(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		if err := enc.Encode(s.handle(req)); err != nil {
			s.report(err)
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	switch req.Op {
	case opGet:
		v, err := s.store.GetItem(req.Key)
		if err != nil {
			return Response{Error: err.Error()}
		}
		value, found := v.Get()
		return Response{OK: true, Found: found, Value: value}
	case opSet:
		if err := s.store.SetItem(req.Key, req.Value); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}
	case opRemove:
		if err := s.store.RemoveItem(req.Key); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}
	case opKeys:
		keys, err := s.store.Keys()
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Keys: keys}
	default:
		return Response{Error: errUnknownOp.Error()}
	}
}
