package server

import (
	"context"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"
)

// RWC joins a reader and a writer into the stream jsonrpc2 needs.
type RWC struct {
	r io.ReadCloser
	w io.WriteCloser
}

// NewStdRWC speaks over standard input and output. Closing it leaves both
// open.
func NewStdRWC() *RWC {
	return &RWC{
		r: io.NopCloser(os.Stdin),
		w: nopWriteCloser{os.Stdout},
	}
}

func NewRWC(r io.ReadCloser, w io.WriteCloser) *RWC {
	return &RWC{r: r, w: w}
}

func (rw *RWC) Read(p []byte) (int, error)  { return rw.r.Read(p) }
func (rw *RWC) Write(p []byte) (int, error) { return rw.w.Write(p) }
func (rw *RWC) Close() error {
	rerr := rw.r.Close()
	werr := rw.w.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Serve answers requests on stream until the client disconnects.
func (s *Server) Serve(ctx context.Context, stream io.ReadWriteCloser) *jsonrpc2.Conn {
	return jsonrpc2.NewConn(
		ctx,
		jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	)
}
