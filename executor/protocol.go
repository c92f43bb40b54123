package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/shundroid/three-blockly/hostfunc"
)

// Protocol markers written by language preludes on stderr.
//
//	\x00BLOCK:{"fn":"alert","args":{...}}\x00   host call, answered on stdin
//	\x00BLOCK_HALT:{"reason":"error",...}\x00   program stopped abnormally
const (
	protocolPrefix     = "\x00BLOCK:"
	protocolHaltPrefix = "\x00BLOCK_HALT:"
	protocolSuffix     = "\x00"
)

// Halt reasons.
const (
	haltLoopLimit = "loop_limit"
	haltError     = "error"
)

type messageType int

const (
	messageNone messageType = iota
	messageCall
	messageHalt
)

type callRequest struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type callResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type haltMessage struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// protocolHandler intercepts stderr to handle host function calls and halt
// signals. Other stderr output passes through.
type protocolHandler struct {
	ctx         context.Context
	registry    *hostfunc.Registry
	stdinWriter *io.PipeWriter
	realStderr  bytes.Buffer
	buf         bytes.Buffer
	halt        *haltMessage
	mu          sync.Mutex
}

func newProtocolHandler(ctx context.Context, registry *hostfunc.Registry, stdinWriter *io.PipeWriter) *protocolHandler {
	return &protocolHandler{
		ctx:         ctx,
		registry:    registry,
		stdinWriter: stdinWriter,
	}
}

// findNextMessage returns the index and type of the first marker in content.
func findNextMessage(content string) (int, messageType) {
	callIdx := strings.Index(content, protocolPrefix)
	haltIdx := strings.Index(content, protocolHaltPrefix)
	switch {
	case callIdx == -1 && haltIdx == -1:
		return -1, messageNone
	case haltIdx == -1 || (callIdx != -1 && callIdx < haltIdx):
		return callIdx, messageCall
	default:
		return haltIdx, messageHalt
	}
}

// extractMessage returns the payload of the marker at idx and the content
// after it. ok is false when the marker is not yet complete.
func extractMessage(content string, idx int, prefix string) (payload, remaining string, ok bool) {
	start := idx + len(prefix)
	end := strings.Index(content[start:], protocolSuffix)
	if end == -1 {
		return "", content[idx:], false
	}
	return content[start : start+end], content[start+end+len(protocolSuffix):], true
}

func (p *protocolHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)

	for {
		content := p.buf.String()
		idx, typ := findNextMessage(content)
		if typ == messageNone {
			// Hold back a trailing partial marker.
			keep := partialMarker(content)
			p.realStderr.WriteString(content[:len(content)-keep])
			p.buf.Reset()
			p.buf.WriteString(content[len(content)-keep:])
			break
		}

		p.realStderr.WriteString(content[:idx])

		prefix := protocolPrefix
		if typ == messageHalt {
			prefix = protocolHaltPrefix
		}
		payload, remaining, ok := extractMessage(content, idx, prefix)
		p.buf.Reset()
		p.buf.WriteString(remaining)
		if !ok {
			break
		}

		if typ == messageHalt {
			var h haltMessage
			if err := json.Unmarshal([]byte(payload), &h); err != nil {
				h = haltMessage{Reason: haltError, Message: payload}
			}
			if p.halt == nil {
				p.halt = &h
			}
			continue
		}

		var req callRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			p.respond(callResponse{Error: "invalid call format"})
			continue
		}
		p.respond(p.handleCall(req))
	}

	return len(data), nil
}

// partialMarker returns the length of a suffix of content that could be the
// start of a marker.
func partialMarker(content string) int {
	i := strings.LastIndexByte(content, 0)
	if i == -1 {
		return 0
	}
	tail := content[i:]
	if strings.HasPrefix(protocolHaltPrefix, tail) || strings.HasPrefix(protocolPrefix, tail) {
		return len(tail)
	}
	return 0
}

func (p *protocolHandler) respond(resp callResponse) {
	data, _ := json.Marshal(resp)
	go p.stdinWriter.Write(append(data, '\n'))
}

func (p *protocolHandler) handleCall(req callRequest) callResponse {
	fn, ok := p.registry.Get(req.Fn)
	if !ok {
		return callResponse{Error: "unknown function: " + req.Fn}
	}

	result, err := fn(p.ctx, req.Args)
	if err != nil {
		return callResponse{Error: err.Error()}
	}
	return callResponse{Data: result}
}

// Stderr returns stderr output with protocol markers removed.
func (p *protocolHandler) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realStderr.String() + p.buf.String()
}

// Halt returns the halt signal, if the program sent one.
func (p *protocolHandler) Halt() *haltMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.halt
}
