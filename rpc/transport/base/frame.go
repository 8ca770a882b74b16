package base

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"

	"github.com/ValentinKolb/dorea/rpc/common"
)

// Frame layout:
//
//	$: <len> | %: <STATE> | #: <body>;
//
// <len> is the byte length of <body> as transmitted. Bodies are sent in the
// escaped form B64'<base64>' so they may contain any byte, including the
// field separator and the terminator. The %: field is optional on input.

const (
	// ChunkSize is the maximum number of bytes requested per read
	ChunkSize = 2048
	// MaxBodySize bounds the declared length of a frame body
	MaxBodySize = 64 << 20

	escapePrefix = "B64'"
	escapeSuffix = "'"
	maxHeaderLen = 64
)

var (
	fieldSep   = []byte(" | ")
	bodyMarker = []byte("#:")
)

// Frame is a decoded frame
type Frame struct {
	State common.State
	Body  []byte
}

// ProtocolError reports a malformed frame. The session survives it.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

func protoErr(format string, args ...interface{}) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// EncodeFrame renders a frame
func EncodeFrame(state common.State, body []byte) []byte {
	escaped := make([]byte, 0, len(escapePrefix)+base64.StdEncoding.EncodedLen(len(body))+len(escapeSuffix))
	escaped = append(escaped, escapePrefix...)
	escaped = base64.StdEncoding.AppendEncode(escaped, body)
	escaped = append(escaped, escapeSuffix...)

	out := make([]byte, 0, len(escaped)+32)
	out = append(out, "$: "...)
	out = strconv.AppendInt(out, int64(len(escaped)), 10)
	out = append(out, " | %: "...)
	out = append(out, state.String()...)
	out = append(out, " | #: "...)
	out = append(out, escaped...)
	return append(out, ';')
}

// WriteFrame encodes a frame and writes it to w
func WriteFrame(w io.Writer, state common.State, body []byte) error {
	_, err := w.Write(EncodeFrame(state, body))
	return err
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decoder reads frames from a stream. Bytes read past the end of a frame
// are kept for the next call, so pipelined frames are decoded in order.
type Decoder struct {
	r       io.Reader
	pending []byte
	chunk   []byte
}

// NewDecoder creates a decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, chunk: make([]byte, ChunkSize)}
}

// fill appends at most ChunkSize bytes to data. It returns false when the
// read produced no bytes.
func (d *Decoder) fill(data []byte) ([]byte, bool, error) {
	n, err := d.r.Read(d.chunk)
	if n > 0 {
		return append(data, d.chunk[:n]...), true, nil
	}
	if err == nil || err == io.EOF {
		return data, false, nil
	}
	return data, false, err
}

// ReadFrame reads the next frame. It returns io.EOF when the peer closed
// the stream before a new frame started and a *ProtocolError for malformed
// input, in which case the rest of the malformed frame is skipped.
func (d *Decoder) ReadFrame() (Frame, error) {
	data := d.pending
	d.pending = nil

	// the header and the byte after the body marker must be buffered
	// before the body can be located
	for {
		idx := bytes.Index(data, bodyMarker)
		if idx >= 0 && idx+len(bodyMarker) < len(data) {
			break
		}
		if idx < 0 && len(data) > maxHeaderLen {
			d.skipFrame(data)
			return Frame{}, protoErr("missing body field")
		}
		var ok bool
		var err error
		data, ok, err = d.fill(data)
		if err != nil {
			return Frame{}, err
		}
		if !ok {
			if idx >= 0 {
				break
			}
			if len(bytes.TrimSpace(data)) == 0 {
				return Frame{}, io.EOF
			}
			return Frame{}, protoErr("incomplete header")
		}
	}

	markerIdx := bytes.Index(data, bodyMarker)
	bodyStart := markerIdx + len(bodyMarker)
	if bodyStart < len(data) && data[bodyStart] == ' ' {
		bodyStart++
	}

	state, length, err := parseHeader(data[:markerIdx])
	if err != nil {
		d.skipFrame(data[bodyStart:])
		return Frame{}, err
	}

	// read until the body and its terminator are buffered
	for len(data)-bodyStart < length+1 {
		var ok bool
		data, ok, err = d.fill(data)
		if err != nil {
			return Frame{}, err
		}
		if !ok {
			break
		}
	}

	payload := data[bodyStart:]
	switch {
	case len(payload) < length:
		// peer stopped mid-body, hand out what arrived
	case len(payload) == length:
		// terminator never arrived
	case payload[length] != ';':
		d.skipFrame(payload)
		return Frame{}, protoErr("missing terminator after %d byte body", length)
	default:
		if rest := payload[length+1:]; len(rest) > 0 {
			d.pending = append([]byte(nil), rest...)
		}
		payload = payload[:length]
	}

	body, err := unescape(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{State: state, Body: body}, nil
}

// skipFrame drops the rest of a malformed frame whose body starts at data.
// An escaped body ends at the first "';" after B64', a raw body at the first
// ';'. Input after the terminator is kept for the next frame.
func (d *Decoder) skipFrame(data []byte) {
	d.pending = nil

	// wait until the start of the body shows whether it is escaped
	for {
		data = bytes.TrimLeft(data, " ")
		if len(data) >= len(escapePrefix) || !bytes.HasPrefix([]byte(escapePrefix), data) {
			break
		}
		var ok bool
		var err error
		if data, ok, err = d.fill(data); err != nil || !ok {
			return
		}
	}

	terminator := []byte{';'}
	if bytes.HasPrefix(data, []byte(escapePrefix)) {
		terminator = []byte(escapeSuffix + ";")
		data = data[len(escapePrefix):]
	}

	for {
		if idx := bytes.Index(data, terminator); idx >= 0 {
			if rest := data[idx+len(terminator):]; len(rest) > 0 {
				d.pending = append([]byte(nil), rest...)
			}
			return
		}
		// keep enough to match a terminator split across reads
		if keep := len(terminator) - 1; len(data) > keep {
			data = append([]byte(nil), data[len(data)-keep:]...)
		}
		var ok bool
		var err error
		if data, ok, err = d.fill(data); err != nil || !ok {
			return
		}
	}
}

// ReadCommand reads a frame and strips one trailing line break from its body
func (d *Decoder) ReadCommand() (string, error) {
	frame, err := d.ReadFrame()
	if err != nil {
		return "", err
	}
	body := frame.Body
	body = bytes.TrimSuffix(body, []byte("\n"))
	body = bytes.TrimSuffix(body, []byte("\r"))
	return string(body), nil
}

// Buffered returns the number of bytes read past the last frame
func (d *Decoder) Buffered() int {
	return len(d.pending)
}

func parseHeader(header []byte) (common.State, int, error) {
	state := common.StateEmpty
	length := -1

	for _, field := range bytes.Split(header, fieldSep) {
		field = bytes.TrimSpace(field)
		if len(field) == 0 {
			continue
		}
		if len(field) < 2 {
			return 0, 0, protoErr("malformed field %q", field)
		}
		value := string(bytes.TrimSpace(field[2:]))
		switch string(field[:2]) {
		case "$:":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return 0, 0, protoErr("invalid length %q", value)
			}
			if n > MaxBodySize {
				return 0, 0, protoErr("body of %d bytes exceeds the limit", n)
			}
			length = n
		case "%:":
			state = common.ParseState(value)
		default:
			return 0, 0, protoErr("unknown field %q", field)
		}
	}

	if length < 0 {
		return 0, 0, protoErr("missing length field")
	}
	return state, length, nil
}

func unescape(payload []byte) ([]byte, error) {
	if len(payload) < len(escapePrefix)+len(escapeSuffix) ||
		!bytes.HasPrefix(payload, []byte(escapePrefix)) ||
		!bytes.HasSuffix(payload, []byte(escapeSuffix)) {
		return append([]byte(nil), payload...), nil
	}
	inner := payload[len(escapePrefix) : len(payload)-len(escapeSuffix)]
	body := make([]byte, base64.StdEncoding.DecodedLen(len(inner)))
	n, err := base64.StdEncoding.Decode(body, inner)
	if err != nil {
		return nil, protoErr("invalid escaped body: %v", err)
	}
	return body[:n], nil
}
