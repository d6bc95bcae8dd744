package daemon

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/tidwall/gjson"
)

// StreamEvent is one decoded progress line of an NDJSON stream.
type StreamEvent struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// StreamOutcome describes how a stream ended. Terminated is false when the
// daemon closed the stream without an explicit success marker.
type StreamOutcome struct {
	Status     string
	Terminated bool
	Events     int
}

// Interpret consumes newline-delimited JSON from r until a terminal event or
// EOF. Blank and undecodable lines are skipped. An event carrying "error"
// ends the stream with a server error holding that message; status "success"
// ends it successfully. EOF without either marker also counts as success.
func Interpret(r io.Reader, onEvent func(StreamEvent)) (StreamOutcome, error) {
	var out StreamOutcome
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if done, ierr := interpretLine(bytes.TrimSpace(line), &out, onEvent); done {
				return out, ierr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, errConnection("stream", err)
		}
	}
}

func interpretLine(line []byte, out *StreamOutcome, onEvent func(StreamEvent)) (bool, error) {
	if len(line) == 0 || !gjson.ValidBytes(line) {
		return false, nil
	}
	res := gjson.ParseBytes(line)
	if !res.IsObject() {
		return false, nil
	}
	out.Events++
	if e := res.Get("error"); e.Exists() {
		return true, &Error{Kind: KindServer, Op: "stream", Message: e.String()}
	}
	st := res.Get("status")
	if !st.Exists() {
		return false, nil
	}
	out.Status = st.String()
	if onEvent != nil {
		onEvent(StreamEvent{
			Status:    out.Status,
			Digest:    res.Get("digest").String(),
			Total:     res.Get("total").Int(),
			Completed: res.Get("completed").Int(),
		})
	}
	if out.Status == "success" {
		out.Terminated = true
		return true, nil
	}
	return false, nil
}
