package pipeline

import (
	"bytes"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-call identifier. It is kept across a replay so the
// server sees both attempts as one logical call.
const RequestIDHeader = "X-Request-ID"

// Call describes one logical request travelling through the pipeline. It is treated as
// immutable: MarkRetried returns a modified copy.
type Call struct {
	ID      string
	Request *http.Request
	Retried bool

	replayable bool
}

// MarkRetried returns a copy of c flagged as already renewed once.
func (c Call) MarkRetried() Call {
	c.Retried = true
	return c
}

// Replayable reports whether the request body can be sent a second time.
func (c Call) Replayable() bool {
	return c.replayable
}

// newCall prepares req for a possible replay. A body without GetBody is buffered up to
// limit bytes; anything larger is streamed once and the call is not replayable.
func newCall(req *http.Request, limit int64) (Call, error) {
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}

	call := Call{ID: id, Request: req, replayable: true}
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return call, nil
	}

	buf, err := io.ReadAll(io.LimitReader(req.Body, limit+1))
	if err != nil {
		req.Body.Close()
		return Call{}, err
	}

	clone := req.Clone(req.Context())
	if int64(len(buf)) > limit {
		clone.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(buf), req.Body), req.Body}
		call.replayable = false
	} else {
		req.Body.Close()
		clone.Body = io.NopCloser(bytes.NewReader(buf))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	}
	call.Request = clone
	return call, nil
}
