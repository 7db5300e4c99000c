package rpc

import (
	"bytes"
	"io"
	"net/rpc/jsonrpc"
)

// rpcRequest adapts a single request body to the connection net/rpc serves.
type rpcRequest struct {
	r    io.Reader
	rw   io.ReadWriter
	done chan bool
}

func newRequest(r io.Reader) *rpcRequest {
	var buf bytes.Buffer
	done := make(chan bool, 1)
	return &rpcRequest{r, &buf, done}
}

func (r *rpcRequest) Read(p []byte) (n int, err error) {
	return r.r.Read(p)
}

func (r *rpcRequest) Write(p []byte) (n int, err error) {
	n, err = r.rw.Write(p)
	r.done <- true
	return
}

func (r *rpcRequest) Close() error {
	return nil
}

func (r *rpcRequest) Call() io.Reader {
	go jsonrpc.ServeConn(r)
	<-r.done
	return r.rw
}
