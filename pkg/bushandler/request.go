// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

// Package bushandler implements the eBUS bus handler: the symbol-level
// state machine that arbitrates for the bus, sends and receives master
// and slave data, and passively decodes traffic between other
// participants.
package bushandler

import (
	"github.com/ebusgo/ebusd/pkg/ebus"
)

// Request is anything that can be driven to completion by Handler: it
// carries the master data to send and is notified of the outcome.
// Implementations are always used by pointer so that busqueue.Queue can
// remove a specific in-flight request by identity.
type Request interface {
	master() *ebus.SymbolBuffer
	busLostRetries() int
	setBusLostRetries(n int)
	deleteOnFinish() bool

	// notify reports the outcome of this request. It returns true if
	// the request should be re-queued to run again (e.g. a scan
	// request with more slaves or messages left).
	notify(result error, slave *ebus.SymbolBuffer) bool
}

// baseRequest provides the bookkeeping every Request implementation
// shares.
type baseRequest struct {
	masterData    *ebus.SymbolBuffer
	retries       int
	deleteWhenDone bool
}

func (r *baseRequest) master() *ebus.SymbolBuffer      { return r.masterData }
func (r *baseRequest) busLostRetries() int             { return r.retries }
func (r *baseRequest) setBusLostRetries(n int)         { r.retries = n }
func (r *baseRequest) deleteOnFinish() bool            { return r.deleteWhenDone }

// ActiveRequest is a request made by a caller that blocks waiting for
// the outcome via Handler.SendAndWait.
type ActiveRequest struct {
	baseRequest
	result error
	slave  *ebus.SymbolBuffer // filled in by notify, caller reads after it completes
}

// NewActiveRequest creates a request to send master and collect the
// reply into slave.
func NewActiveRequest(master, slave *ebus.SymbolBuffer) *ActiveRequest {
	return &ActiveRequest{
		baseRequest: baseRequest{masterData: master, deleteWhenDone: false},
		result:      ebus.ErrNoSignal,
		slave:       slave,
	}
}

// Result returns the outcome recorded by the last notify call.
func (r *ActiveRequest) Result() error { return r.result }

func (r *ActiveRequest) notify(result error, slave *ebus.SymbolBuffer) bool {
	r.result = result
	if result == nil {
		r.slave.CopyFrom(slave)
	}
	return false
}

// PollRequest is a periodic poll of a known message, driven entirely by
// Handler without an external caller waiting on it.
type PollRequest struct {
	baseRequest
	message ebus.Message
	onDone  func(err error)
}

// NewPollRequest creates a poll request for message; Prepare sets its
// source address. onDone, if non-nil, is called when the poll
// completes (successfully or not).
func NewPollRequest(message ebus.Message, onDone func(err error)) *PollRequest {
	return &PollRequest{
		baseRequest: baseRequest{deleteWhenDone: true},
		message:     message,
		onDone:      onDone,
	}
}

// Prepare builds the master data to send, addressed from ownMasterAddress.
func (r *PollRequest) Prepare(ownMasterAddress byte) error {
	master, err := r.message.PrepareMaster(ownMasterAddress, "")
	if err != nil {
		return err
	}
	r.masterData = master
	return nil
}

func (r *PollRequest) notify(result error, slave *ebus.SymbolBuffer) bool {
	if result == nil {
		result = r.message.StoreLastData(r.masterData, slave)
	}
	if r.onDone != nil {
		r.onDone(result)
	}
	return false
}

// ScanRequest drives each slave address in turn through its scan
// message (and any additional messages supplied), reports each slave's
// combined result to onSlaveResult, and calls onFinished once no slave
// is left.
type ScanRequest struct {
	baseRequest
	catalog       ebus.MessageCatalog
	ownMaster     byte
	message       ebus.Message
	allMessages   []ebus.Message
	messages      []ebus.Message
	slaves        []byte
	scanResult    string
	onSlaveResult func(dstAddress byte, result string)
	onFinished    func()
}

// NewScanRequest creates a request that scans every address in slaves,
// querying message first and then every entry of extra for each one.
func NewScanRequest(catalog ebus.MessageCatalog, message ebus.Message, extra []ebus.Message, slaves []byte, onSlaveResult func(byte, string), onFinished func()) *ScanRequest {
	allMessages := append([]ebus.Message{message}, extra...)
	r := &ScanRequest{
		baseRequest:   baseRequest{deleteWhenDone: true},
		catalog:       catalog,
		allMessages:   allMessages,
		messages:      append([]ebus.Message{}, allMessages...),
		slaves:        append([]byte{}, slaves...),
		onSlaveResult: onSlaveResult,
		onFinished:    onFinished,
	}
	if len(r.messages) > 0 {
		r.message = r.messages[0]
		r.messages = r.messages[1:]
	}
	return r
}

// Prepare builds the master data for the current message and slave,
// addressed from ownMasterAddress.
func (r *ScanRequest) Prepare(ownMasterAddress byte) error {
	r.ownMaster = ownMasterAddress
	if len(r.slaves) == 0 {
		return ebus.ErrEOF
	}
	dst := r.slaves[0]
	if r.message == nil {
		return ebus.ErrEOF
	}
	master, err := r.message.PrepareMaster(ownMasterAddress, "")
	if err != nil {
		return err
	}
	master.Set(1, dst) // address destination to the slave under scan
	r.masterData = master
	return nil
}

func (r *ScanRequest) notify(result error, slave *ebus.SymbolBuffer) bool {
	dstAddress := r.masterData.At(1)
	if result == nil {
		// A device behind dstAddress may use a more specific scan message
		// than the generic one this request started with.
		if scanMsg := r.catalog.GetScanMessage(dstAddress); scanMsg != nil && scanMsg != r.message {
			r.message = scanMsg
		}
		if err := r.message.StoreLastData(r.masterData, slave); err != nil {
			result = err
		} else if decoded, err := r.message.DecodeLastData(-1); err == nil {
			r.scanResult += decoded
		}
	}
	if result != nil {
		if len(r.slaves) > 0 {
			r.slaves = r.slaves[1:]
		}
		r.messages = nil // skip remaining secondary messages for this slave
	} else if len(r.messages) == 0 {
		if len(r.slaves) > 0 {
			r.slaves = r.slaves[1:]
		}
	}
	if len(r.messages) == 0 && r.onSlaveResult != nil {
		r.onSlaveResult(dstAddress, r.scanResult)
	}

	if len(r.slaves) == 0 {
		if r.onFinished != nil {
			r.onFinished()
		}
		return false
	}
	if len(r.messages) == 0 {
		r.messages = append([]ebus.Message{}, r.allMessages...)
		r.scanResult = ""
	}
	r.message, r.messages = r.messages[0], r.messages[1:]
	if err := r.Prepare(r.ownMaster); err != nil {
		if r.onFinished != nil {
			r.onFinished()
		}
		return false
	}
	return true
}
