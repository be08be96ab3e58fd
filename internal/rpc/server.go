package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/memflow/memflowd/internal/dump"
	"github.com/memflow/memflowd/internal/region"
	"github.com/memflow/memflowd/internal/table"
)

// Server dispatches framed JSON requests to a Table. Every exported RPC
// method maps 1:1 onto a single Table call; the server holds no allocator
// lock of its own.
type Server struct {
	table      *table.Table
	dumpFolder string
	log        *logrus.Entry
}

// NewServer constructs a Server over t, writing write-triggered dumps into
// dumpFolder.
func NewServer(t *table.Table, dumpFolder string, log *logrus.Entry) *Server {
	return &Server{table: t, dumpFolder: dumpFolder, log: log}
}

// Serve accepts connections on ln until ctx is canceled, handling each on
// its own goroutine. It returns once the listener is closed and all
// in-flight connections have finished their current request.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			// On cancellation, unblock the connection's next read so it
			// closes after answering the request it is serving.
			stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
			defer stop()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log := s.log.WithField("remote", conn.RemoteAddr())
	log.Debug("connection accepted")
	defer log.Debug("connection closed")

	for {
		body, err := readFrame(conn)
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeResponse(conn, Response{OK: false, Error: "BadEncoding", Message: err.Error()})
			continue
		}

		resp := s.dispatch(req)
		if err := s.writeResponse(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return writeFrame(conn, body)
}

func (s *Server) dispatch(req Request) Response {
	switch req.Method {
	case "Create":
		return s.handleCreate(req.Payload)
	case "Set":
		return s.handleSet(req.Payload)
	case "Get":
		return s.handleGet(req.Payload)
	case "IncreaseRefCount":
		return s.handleIncRef(req.Payload)
	case "DecreaseRefCount":
		return s.handleDecRef(req.Payload)
	default:
		return Response{OK: false, Error: "UnknownMethod", Message: req.Method}
	}
}

type createRequest struct {
	Size uint64 `json:"size"`
	Type string `json:"type"`
}

type createResult struct {
	ID region.ID `json:"id"`
}

func (s *Server) handleCreate(payload json.RawMessage) Response {
	var req createRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{OK: false, Error: "BadEncoding", Message: err.Error()}
	}

	id, err := s.table.Allocate(req.Type, req.Size)
	if err != nil {
		return errResponse(err)
	}

	result, _ := json.Marshal(createResult{ID: id})
	return Response{OK: true, Result: result}
}

type idRequest struct {
	ID region.ID `json:"id"`
}

type setRequest struct {
	ID    region.ID `json:"id"`
	Value string    `json:"value"`
}

func (s *Server) handleSet(payload json.RawMessage) Response {
	var req setRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{OK: false, Error: "BadEncoding", Message: err.Error()}
	}

	if err := s.table.Write(req.ID, req.Value); err != nil {
		return errResponse(err)
	}

	s.writeDump()

	return Response{OK: true}
}

type getResult struct {
	Value string `json:"value"`
}

func (s *Server) handleGet(payload json.RawMessage) Response {
	var req idRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{OK: false, Error: "BadEncoding", Message: err.Error()}
	}

	value, err := s.table.Read(req.ID)
	if err != nil {
		return errResponse(err)
	}

	result, _ := json.Marshal(getResult{Value: value})
	return Response{OK: true, Result: result}
}

func (s *Server) handleIncRef(payload json.RawMessage) Response {
	var req idRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{OK: false, Error: "BadEncoding", Message: err.Error()}
	}
	s.table.IncRef(req.ID)
	return Response{OK: true}
}

func (s *Server) handleDecRef(payload json.RawMessage) Response {
	var req idRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return Response{OK: false, Error: "BadEncoding", Message: err.Error()}
	}
	s.table.DecRef(req.ID)
	return Response{OK: true}
}

// writeDump renders and writes a write-triggered dump after a successful
// Set, outside any allocator lock.
func (s *Server) writeDump() {
	snap := s.table.Snapshot()
	if _, err := dump.Write(s.dumpFolder, snap, false, time.Now()); err != nil {
		s.log.WithError(err).Warn("failed to write dump")
	}
}

func errResponse(err error) Response {
	var tErr *table.Error
	if errors.As(err, &tErr) {
		return Response{OK: false, Error: string(tErr.Code), Message: tErr.Message}
	}
	return Response{OK: false, Error: "Internal", Message: err.Error()}
}
