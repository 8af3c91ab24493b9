// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package relay

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Outbound commands.
const (
	CmdRegister   = "REGISTER"
	CmdCommands   = "COMMANDS"
	CmdWork       = "WORK"
	CmdUnregister = "UNREGISTER"
	CmdPing       = "PING"
)

// Inbound commands.
const (
	CmdReady        = "READY"
	CmdHelp         = "HELP"
	CmdWorkAck      = "WORK_ACK"
	CmdWorkFailed   = "WORK_FAILED"
	CmdShuttingDown = "SHUTTING_DOWN"
	CmdStop         = "STOP"
	CmdUnrecognized = "UNRECOGNIZED"
)

// Parameter names.
const (
	ParamService      = "service"
	ParamList         = "list"
	ParamURI          = "uri"
	ParamPriority     = "priority"
	ParamKeyStartDate = "key_start_date"
	ParamMessageID    = "message_id"
	ParamCache        = "cache"
	ParamCommand      = "command"
	ParamReason       = "reason"
)

// AcceptedCommands lists the inbound commands a session understands.
var AcceptedCommands = []string{
	CmdReady, CmdHelp, CmdWorkAck, CmdWorkFailed, CmdShuttingDown, CmdStop, CmdUnrecognized,
}

// Message is one protocol message.
type Message struct {
	Command string            `json:"command"`
	Params  map[string]string `json:"params,omitempty"`
}

// NewMessage builds a message from alternating parameter names and values.
func NewMessage(cmd string, kv ...string) Message {
	m := Message{Command: cmd}
	if len(kv) > 0 {
		m.Params = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m.Params[kv[i]] = kv[i+1]
		}
	}
	return m
}

// Get returns a parameter or "".
func (m Message) Get(name string) string {
	return m.Params[name]
}

// String renders the message for logs.
func (m Message) String() string {
	if len(m.Params) == 0 {
		return m.Command
	}
	var b strings.Builder
	b.WriteString(m.Command)
	b.WriteByte('{')
	first := true
	for k, v := range m.Params {
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	b.WriteByte('}')
	return b.String()
}

// Encode serializes a message.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Command, err)
	}
	return data, nil
}

// Decode parses a message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Command == "" {
		return Message{}, fmt.Errorf("decode message: missing command")
	}
	return m, nil
}
