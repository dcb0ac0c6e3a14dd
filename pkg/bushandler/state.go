// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

// BusState is a symbol-level state of the bus handler's arbitration and
// transfer state machine.
type BusState int

const (
	// StateNoSignal means no symbol has been seen recently; the bus may
	// be disconnected or idle beyond SignalTimeout.
	StateNoSignal BusState = iota
	// StateSkip means a symbol is being discarded until the next SYN,
	// typically after detecting a framing problem.
	StateSkip
	// StateReady means the bus is idle after a SYN and available for
	// arbitration.
	StateReady
	// StateRecvCmd means a command (master data) is being received from
	// another participant.
	StateRecvCmd
	// StateRecvCmdAck means a command has been fully received and this
	// handler is waiting to see the addressed slave's ACK/NAK.
	StateRecvCmdAck
	// StateRecvRes means a response (slave data) is being received.
	StateRecvRes
	// StateRecvResAck means a response has been fully received and the
	// sending master's own ACK/NAK is awaited.
	StateRecvResAck
	// StateSendCmd means this handler is actively sending its own
	// command.
	StateSendCmd
	// StateSendResAck means this handler must answer a command
	// addressed to it with an ACK or NAK.
	StateSendResAck
	// StateSendCmdAck means this handler must ACK or NAK a response it
	// requested.
	StateSendCmdAck
	// StateSendRes means this handler is actively sending the response
	// to a command addressed to it.
	StateSendRes
	// StateSendSyn means this handler must send a SYN symbol, either to
	// end its own transfer or as the bus's AUTO-SYN generator.
	StateSendSyn
)

func (s BusState) String() string {
	switch s {
	case StateNoSignal:
		return "no signal"
	case StateSkip:
		return "skip"
	case StateReady:
		return "ready"
	case StateRecvCmd:
		return "recv command"
	case StateRecvCmdAck:
		return "recv command ACK"
	case StateRecvRes:
		return "recv response"
	case StateRecvResAck:
		return "recv response ACK"
	case StateSendCmd:
		return "send command"
	case StateSendResAck:
		return "send response ACK"
	case StateSendCmdAck:
		return "send command ACK"
	case StateSendRes:
		return "send response"
	case StateSendSyn:
		return "send SYN"
	default:
		return "unknown"
	}
}
