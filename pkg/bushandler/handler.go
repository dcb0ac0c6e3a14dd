// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2026 the ebusd-go authors

package bushandler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ebusgo/ebusd/pkg/busqueue"
	"github.com/ebusgo/ebusd/pkg/ebus"
	"github.com/ebusgo/ebusd/pkg/ebus/device"
	"github.com/ebusgo/ebusd/internal/elog"
)

// maxSymPerSecNoticeThreshold is the rate above which a new maximum is
// logged, rather than silently tracked.
const maxSymPerSecNoticeThreshold = 100

// Config holds the tunables a Handler is constructed with.
type Config struct {
	// OwnMasterAddress is this daemon's master bus address.
	OwnMasterAddress byte
	// Answer makes Handler respond, as a passive slave, to messages
	// addressed to OwnMasterAddress's slave address.
	Answer bool
	// GenerateSyn makes Handler act as the bus's AUTO-SYN generator
	// when no other participant is doing so.
	GenerateSyn bool
	// LockCount is the number of SYN symbols this handler must see pass
	// uninterrupted before it may arbitrate for the bus. 0 selects
	// automatic detection from the number of masters seen.
	LockCount int
	// BusLostRetries is how many times a request is silently retried
	// after losing arbitration or the bus going silent, before the
	// caller is notified of failure.
	BusLostRetries int
	// FailedSendRetries is how many times SendAndWait retries a request
	// that failed for a reason other than NO_SIGNAL/SEND/DEVICE.
	FailedSendRetries int
	// PollInterval is the minimum spacing between automatic polls of
	// catalog messages. 0 disables polling.
	PollInterval time.Duration
	// TransferLatency is added to every device receive timeout to
	// account for a transport's added delay (e.g. a network gateway).
	TransferLatency time.Duration
	// BusAcquireTimeout overrides how long to wait for the bus to go
	// idle before arbitrating. 0 selects the protocol default.
	BusAcquireTimeout time.Duration
	// SlaveRecvTimeout overrides how long to wait for a slave's next
	// symbol once addressed. 0 selects the protocol default.
	SlaveRecvTimeout time.Duration
}

// DefaultConfig returns a Config with the eBUS daemon's conventional
// defaults.
func DefaultConfig(ownMasterAddress byte) Config {
	return Config{
		OwnMasterAddress:  ownMasterAddress,
		Answer:            false,
		GenerateSyn:       false,
		LockCount:         0,
		BusLostRetries:    2,
		FailedSendRetries: 2,
		PollInterval:      5 * time.Second,
	}
}

// Handler runs the eBUS symbol-level state machine: it arbitrates for
// the bus, drives queued requests to completion, answers messages
// addressed to this daemon, and passively tracks and decodes traffic
// between other participants.
type Handler struct {
	dev     device.Device
	catalog ebus.MessageCatalog
	log     *elog.Logger

	ownMaster byte
	ownSlave  byte
	answer    bool

	busLostRetries    int
	failedSendRetries int
	pollInterval      time.Duration
	lastPoll          time.Time

	transferLatency   time.Duration
	busAcquireTimeout time.Duration
	slaveRecvTimeout  time.Duration

	autoLockCount   bool
	lockCount       int
	remainLockCount int
	masterCount     atomic.Uint32

	symCount        int
	lastRateSample  time.Time
	symPerSec       atomic.Uint32
	maxSymPerSec    atomic.Uint32
	signalOK        atomic.Bool

	generateSynInterval time.Duration
	sawOwnSyn           bool

	nextRequests     *busqueue.Queue[Request]
	finishedRequests *busqueue.Queue[Request]
	currentRequest   Request

	state  BusState
	repeat bool

	command  *ebus.SymbolBuffer // accumulates a received master frame, unescaped
	response *ebus.SymbolBuffer // accumulates a received slave frame, unescaped
	sendBuf  *ebus.SymbolBuffer // active outgoing frame, escaped wire bytes
	sendPos  int

	lastSignal time.Time

	addresses *AddressTable
	grabber   *Grabber
}

// New creates a Handler for dev, backed by catalog for message lookups.
func New(dev device.Device, catalog ebus.MessageCatalog, cfg Config, log *elog.Logger) *Handler {
	if log == nil {
		log = elog.Default()
	}
	h := &Handler{
		dev:               dev,
		catalog:           catalog,
		log:               log,
		ownMaster:         cfg.OwnMasterAddress,
		ownSlave:          ebus.SlaveAddress(cfg.OwnMasterAddress),
		answer:            cfg.Answer,
		busLostRetries:    cfg.BusLostRetries,
		failedSendRetries: cfg.FailedSendRetries,
		pollInterval:      cfg.PollInterval,
		transferLatency:   cfg.TransferLatency,
		busAcquireTimeout: cfg.BusAcquireTimeout,
		slaveRecvTimeout:  cfg.SlaveRecvTimeout,
		autoLockCount:     cfg.LockCount == 0,
		lockCount:         cfg.LockCount,
		nextRequests:      busqueue.New[Request](),
		finishedRequests:  busqueue.New[Request](),
		state:             StateNoSignal,
		command:           ebus.NewSymbolBuffer(false),
		response:          ebus.NewSymbolBuffer(false),
		addresses:         NewAddressTable(),
		grabber:           NewGrabber(),
	}
	h.masterCount.Store(1) // counts our own master, never zero
	if h.lockCount < 3 {
		h.lockCount = 3
	}
	if cfg.GenerateSyn {
		h.generateSynInterval = time.Duration(ebus.SynTimeout)*time.Microsecond*time.Duration(ebus.MasterNumber(h.ownMaster)) + ebus.SymbolDuration*time.Microsecond
	}
	return h
}

// Run drives the handler's main loop until ctx is cancelled. It
// re-opens the device after a failure, pausing briefly between
// attempts. On return, every still-queued request is notified with
// ebus.ErrNoSignal.
func (h *Handler) Run(ctx context.Context) error {
	h.lastRateSample = time.Now()
	for ctx.Err() == nil {
		if !h.dev.IsValid() {
			if err := h.dev.Open(); err != nil {
				h.log.Errorf("device open failed: %v", err)
				h.drainOnNoSignal()
				if !sleepCtx(ctx, time.Second) {
					break
				}
				continue
			}
			h.log.Infof("device %s opened", h.dev.Name())
			h.setState(StateNoSignal, nil)
		}
		err := h.step()
		if err != nil {
			h.log.Debugf("step: %v", err)
		}
		h.countSymbol(err)
	}
	h.drainOnNoSignal()
	return ctx.Err()
}

// countSymbol updates the per-second symbol rate, counting every step
// that actually moved a symbol across the wire; a bare timeout (nobody
// transmitted at all) doesn't count.
func (h *Handler) countSymbol(stepErr error) {
	if !errors.Is(stepErr, ebus.ErrTimeout) {
		h.symCount++
	}
	now := time.Now()
	elapsed := now.Sub(h.lastRateSample)
	if elapsed < time.Second {
		return
	}
	rate := uint32(float64(h.symCount) / elapsed.Seconds())
	h.symPerSec.Store(rate)
	if rate > h.maxSymPerSec.Load() {
		h.maxSymPerSec.Store(rate)
		if rate > maxSymPerSecNoticeThreshold {
			h.log.Noticef("max. symbols per second: %d", rate)
		}
	}
	h.symCount = 0
	h.lastRateSample = now
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// step performs one symbol's worth of work: decide what (if anything)
// to send, send or receive a symbol, and advance the state machine.
func (h *Handler) step() error {
	sendSymbol, hasSend := h.symbolToSend()

	var recv byte
	var err error
	if hasSend {
		if err = h.dev.Send(sendSymbol); err != nil {
			h.setState(StateNoSignal, fmt.Errorf("%w: %v", ebus.ErrSend, err))
			return err
		}
		recv, err = h.dev.Recv(ebus.SendTimeout*time.Microsecond + h.transferLatency)
	} else {
		recv, err = h.dev.Recv(h.recvTimeout())
	}

	if err != nil {
		if errors.Is(err, ebus.ErrTimeout) {
			return h.handleTimeout(hasSend, sendSymbol)
		}
		h.setState(StateNoSignal, err)
		return err
	}
	h.lastSignal = time.Now()

	if hasSend && h.state != StateReady {
		// Every active send outside arbitration must echo back
		// unchanged; anything else means the bus was stepped on.
		if recv != sendSymbol {
			h.setState(StateReady, fmt.Errorf("%w: echo mismatch", ebus.ErrSend))
			return nil
		}
	}

	if recv == ebus.SYN {
		wasOwn := hasSend && sendSymbol == ebus.SYN
		if wasOwn && h.generateSynInterval > ebus.SynTimeout*time.Microsecond {
			// Our own speculative SYN came back uncontested: nobody else
			// is generating AUTO-SYN, so take over the role outright.
			h.generateSynInterval = ebus.SynTimeout * time.Microsecond
			h.remainLockCount = 0
		}
		h.sawOwnSyn = wasOwn
		h.setState(StateReady, nil)
		return nil
	}

	switch h.state {
	case StateNoSignal, StateSkip:
		h.setState(StateSkip, nil)
	case StateReady:
		h.handleReady(recv, hasSend, sendSymbol)
	case StateRecvCmd:
		h.handleRecvCmd(recv)
	case StateRecvCmdAck:
		h.handleRecvCmdAck(recv)
	case StateRecvRes:
		h.handleRecvRes(recv)
	case StateRecvResAck:
		h.handleRecvResAck(recv)
	case StateSendCmd:
		h.handleSendCmd()
	case StateSendResAck:
		h.handleSendResAck()
	case StateSendCmdAck:
		h.handleSendCmdAck()
	case StateSendRes:
		h.handleSendRes()
	case StateSendSyn:
		h.setState(StateReady, nil)
	}
	return nil
}

// postSendSynGrace is the literal one-second threshold spec.md's receive-
// error rule uses, rather than a value derived from SynTimeout.
const postSendSynGrace = time.Second

func (h *Handler) handleTimeout(hasSend bool, sendSymbol byte) error {
	if h.generateSynInterval > 0 && (h.state == StateNoSignal || h.state == StateSkip) {
		h.setState(StateSendSyn, nil)
		return nil
	}
	if time.Since(h.lastSignal) > postSendSynGrace {
		h.setState(StateNoSignal, ebus.ErrNoSignal)
		return ebus.ErrNoSignal
	}
	if hasSend {
		h.setState(StateReady, fmt.Errorf("%w: no echo", ebus.ErrSend))
		return ebus.ErrSend
	}
	return ebus.ErrTimeout
}

// recvTimeout is how long to wait for the next passive symbol given the
// current state, augmented by the configured transfer latency. While
// waiting for a SYN with AUTO-SYN generation enabled, the wait is
// generateSynInterval, after which handleTimeout sends a SYN itself.
func (h *Handler) recvTimeout() time.Duration {
	switch h.state {
	case StateNoSignal, StateSkip:
		if h.generateSynInterval > 0 {
			return h.generateSynInterval + h.transferLatency
		}
		return ebus.SignalTimeout*time.Microsecond + h.transferLatency
	case StateReady:
		if h.busAcquireTimeout > 0 {
			return h.busAcquireTimeout + h.transferLatency
		}
		return ebus.SlaveRecvTimeout*time.Microsecond + h.transferLatency
	default:
		if h.slaveRecvTimeout > 0 {
			return h.slaveRecvTimeout + h.transferLatency
		}
		return ebus.SlaveRecvTimeout*time.Microsecond + h.transferLatency
	}
}

// symbolToSend decides whether this step is an active send and, if so,
// what symbol.
func (h *Handler) symbolToSend() (byte, bool) {
	switch h.state {
	case StateReady:
		if h.remainLockCount > 0 {
			h.remainLockCount--
			return 0, false
		}
		if h.currentRequest == nil {
			if req, ok := h.nextRequests.Peek(); ok {
				h.currentRequest = req
				return req.master().At(0), true
			}
			if h.pollInterval > 0 && time.Since(h.lastPoll) >= h.pollInterval {
				if msg := h.catalog.GetNextPoll(); msg != nil {
					pr := NewPollRequest(msg, nil)
					if err := pr.Prepare(h.ownMaster); err == nil {
						h.lastPoll = time.Now()
						h.currentRequest = pr
						return pr.master().At(0), true
					}
				}
			}
		}
		return 0, false
	case StateSendCmd:
		return h.sendBuf.At(h.sendPos), true
	case StateSendRes:
		return h.sendBuf.At(h.sendPos), true
	case StateSendCmdAck:
		if h.repeat {
			return ebus.NAK, true
		}
		return ebus.ACK, true
	case StateSendResAck:
		if h.repeat {
			return ebus.NAK, true
		}
		return ebus.ACK, true
	case StateSendSyn:
		return ebus.SYN, true
	default:
		return 0, false
	}
}

// handleReady processes the first symbol after a SYN: either another
// participant's master address (arbitration or pure observation), or
// the echo of our own attempt to arbitrate.
func (h *Handler) handleReady(recv byte, sent bool, sentSymbol byte) {
	// Fresh buffers each cycle: h.command may have been aliased to a
	// request's own master data on a previous active send, and must not
	// be mutated through that alias.
	h.command = ebus.NewSymbolBuffer(false)
	h.response = ebus.NewSymbolBuffer(false)
	h.sendPos = 0

	if sent {
		if recv == sentSymbol {
			// Won arbitration: the request's own master data is now the
			// frame on the wire, already including its trailing CRC, so
			// it becomes both the send buffer and the "received" command.
			h.sendBuf = h.currentRequest.master()
			h.command = h.sendBuf
			h.sendPos = 1
			h.addSeenAddress(recv)
			if h.sendBuf.Size() > 1 {
				h.addSeenAddress(h.sendBuf.At(1))
			}
			h.setState(StateSendCmd, nil)
			return
		}
		// Lost arbitration: someone else's address came back instead.
		// Route through setState so the request we were trying to send
		// gets its bus-lost retry counted, same as any other recoverable
		// failure — and a terminal notification once retries run out,
		// rather than being re-arbitrated forever.
		h.setState(h.state, ebus.ErrBusLost)
		// Back off from arbitrating again for a few SYN cycles, longer
		// if the winner is a master of a different priority class.
		if ebus.IsMasterAddress(recv) {
			h.remainLockCount = 2
		} else {
			h.remainLockCount = 1
		}
		if (recv&0x0f) != (sentSymbol&0x0f) && h.lockCount > h.remainLockCount {
			h.remainLockCount = h.lockCount
		}
	}

	if !ebus.IsValidAddress(recv, true) {
		h.setState(StateSkip, nil)
		return
	}
	h.addSeenAddress(recv)
	_ = h.command.Push(recv, true, true)
	if ebus.IsMasterAddress(recv) {
		h.setState(StateRecvCmd, nil)
	} else {
		h.setState(StateSkip, nil)
	}
}

// handleRecvCmd accumulates the header and data of a command being sent
// by another master, and reacts once the frame (plus trailing CRC) is
// complete.
func (h *Handler) handleRecvCmd(recv byte) {
	total := -1
	if h.command.Size() >= 5 {
		total = 5 + int(h.command.At(4)) + 1
	}
	// The trailing CRC symbol itself must not feed the running CRC, or
	// the comparison below would always include its own contribution.
	_ = h.command.Push(recv, true, !(total > 0 && h.command.Size() == total-1))
	if h.command.Size() < 5 {
		return
	}
	dataLen := int(h.command.At(4))
	total = 5 + dataLen + 1 // header + data + CRC
	if h.command.Size() < total {
		if dataLen > 16 {
			h.setState(StateSkip, ebus.ErrOverflow)
		}
		return
	}

	dst := h.command.At(1)
	h.addSeenAddress(dst)
	if dst == ebus.BROADCAST {
		// A broadcast command gets no ACK from anyone.
		h.finishOrLog(nil, nil)
		h.setState(StateReady, nil)
		return
	}
	crcOK := h.command.At(total-1) == h.command.CRC()

	if dst == h.ownSlave && h.answer {
		h.repeat = !crcOK
		h.setState(StateSendResAck, nil)
		return
	}
	h.setState(StateRecvCmdAck, nil)
}

// handleRecvCmdAck watches for the addressed participant's ACK/NAK of a
// command we observed (or sent) so the transfer can be completed or
// retried.
func (h *Handler) handleRecvCmdAck(recv byte) {
	// A command we sent ourselves was built correctly by construction;
	// only a passively observed command needs its CRC re-validated here.
	crcOK := h.currentRequest != nil || h.command.At(h.command.Size()-1) == h.command.CRC()
	switch {
	case recv == ebus.ACK && crcOK:
		h.finishCommandReceive(nil)
	case h.currentRequest != nil:
		// Our own command was NAK'd or its echo was corrupted; let the
		// request-level retry policy decide whether to resend.
		h.setState(StateReady, ebus.ErrAck)
	case recv == ebus.NAK && !h.repeat:
		h.repeat = true
		h.command = ebus.NewSymbolBuffer(false)
		h.setState(StateRecvCmd, nil)
	default:
		h.finishCommandReceive(ebus.ErrCRC)
	}
}

func (h *Handler) finishCommandReceive(err error) {
	if err != nil {
		h.finishOrLog(err, nil)
		h.setState(StateReady, nil)
		return
	}
	dst := h.command.At(1)
	if dst == ebus.BROADCAST || h.isWriteCommand(h.command) {
		h.finishOrLog(nil, nil)
		h.setState(StateReady, nil)
		return
	}
	h.setState(StateRecvRes, nil)
}

// finishOrLog completes the request we sent ourselves, if any, or else
// just records a passively observed message.
func (h *Handler) finishOrLog(err error, slave *ebus.SymbolBuffer) {
	if h.currentRequest != nil {
		h.finishCurrentRequest(err, slave)
		return
	}
	h.receiveCompleted(h.command, slave, err)
}

// isWriteCommand reports whether cmd (a full master frame: address,
// destination, pb, sb, ...) is a write that expects no response data,
// per the catalog's knowledge of the message. Unknown commands are
// conservatively treated as expecting a response; if none arrives, the
// state machine stays in StateRecvRes until the next SYN returns it to
// StateReady.
func (h *Handler) isWriteCommand(cmd *ebus.SymbolBuffer) bool {
	if cmd.Size() < 4 {
		return false
	}
	msg := h.catalog.Find(cmd.At(1), cmd.At(2), cmd.At(3))
	return msg != nil && msg.IsWrite()
}

// handleRecvRes accumulates a slave's answer to a command we are
// passively observing (or that we sent ourselves).
func (h *Handler) handleRecvRes(recv byte) {
	total := -1
	if h.response.Size() >= 1 {
		total = 1 + int(h.response.At(0)) + 1
	}
	_ = h.response.Push(recv, true, !(total > 0 && h.response.Size() == total-1))
	if h.response.Size() < 1 {
		return
	}
	dataLen := int(h.response.At(0))
	total = 1 + dataLen + 1
	if h.response.Size() < total {
		if dataLen > 16 {
			h.setState(StateSkip, ebus.ErrOverflow)
		}
		return
	}
	src := h.command.At(0)
	if src == h.ownMaster {
		crcOK := h.response.At(total-1) == h.response.CRC()
		h.repeat = !crcOK
		h.setState(StateSendCmdAck, nil)
		return
	}
	h.setState(StateRecvResAck, nil)
}

func (h *Handler) handleRecvResAck(recv byte) {
	total := h.response.Size()
	// A response we built and sent ourselves (as the addressed slave)
	// was correct by construction; only a passively observed or
	// requested response needs its CRC re-validated here.
	weAnswered := h.command.Size() > 1 && h.command.At(1) == h.ownSlave
	crcOK := weAnswered || (total > 0 && h.response.At(total-1) == h.response.CRC())
	switch {
	case recv == ebus.ACK && crcOK:
		h.receiveCompleted(h.command, h.response, nil)
		h.setState(StateReady, nil)
	case recv == ebus.NAK && !h.repeat && weAnswered:
		h.repeat = true
		h.sendPos = 0
		h.setState(StateSendRes, nil)
	case recv == ebus.NAK && !h.repeat:
		h.repeat = true
		h.response = ebus.NewSymbolBuffer(false)
		h.setState(StateRecvRes, nil)
	default:
		h.receiveCompleted(h.command, h.response, ebus.ErrCRC)
		h.setState(StateReady, nil)
	}
}

// handleSendCmd actively sends our own command, symbol by symbol,
// already having verified each echo in step().
func (h *Handler) handleSendCmd() {
	h.sendPos++
	if h.sendPos < h.sendBuf.Size() {
		return
	}
	if h.sendBuf.At(1) == ebus.BROADCAST {
		// Nobody ACKs a broadcast.
		h.setState(StateSendSyn, nil)
		h.finishCurrentRequest(nil, nil)
		return
	}
	h.setState(StateRecvCmdAck, nil)
}

// handleSendResAck answers a command addressed to us, sending ACK (or
// NAK if the CRC we observed was bad) and, on ACK, our response data.
func (h *Handler) handleSendResAck() {
	if h.repeat {
		h.command = ebus.NewSymbolBuffer(false)
		h.setState(StateRecvCmd, nil)
		return
	}
	msg := h.catalog.Find(h.command.At(1), h.command.At(2), h.command.At(3))
	if msg == nil {
		h.setState(StateReady, nil)
		return
	}
	reply, err := msg.PrepareSlave()
	if err != nil {
		h.setState(StateReady, nil)
		return
	}
	h.sendBuf = reply
	h.sendPos = 0
	h.setState(StateSendRes, nil)
}

// handleSendCmdAck ACKs or NAKs a response we requested. A NAK asks the
// slave to resend; an ACK completes the request successfully.
func (h *Handler) handleSendCmdAck() {
	if h.repeat {
		h.response = ebus.NewSymbolBuffer(false)
		h.setState(StateRecvRes, nil)
		return
	}
	h.setState(StateSendSyn, nil)
	h.finishCurrentRequest(nil, h.response)
}

// handleSendRes actively sends our response to a command addressed to
// us, symbol by symbol.
func (h *Handler) handleSendRes() {
	h.sendPos++
	if h.sendPos < h.sendBuf.Size() {
		return
	}
	h.response = h.sendBuf
	h.setState(StateRecvResAck, nil)
}

// finishCurrentRequest delivers the outcome of h.currentRequest, honors
// its notify-driven restart request, and clears it. h.currentRequest is
// only ever assigned from nextRequests.Peek (symbolToSend) without a
// matching Pop, so it is still sitting at the front of that queue right
// up to this terminal outcome; it must be pulled out here or it would be
// re-arbitrated and notified again on the very next StateReady cycle.
func (h *Handler) finishCurrentRequest(result error, slave *ebus.SymbolBuffer) {
	req := h.currentRequest
	h.currentRequest = nil
	if req == nil {
		return
	}
	h.nextRequests.Remove(req, false)
	if slave == nil {
		slave = ebus.NewSymbolBuffer(true)
	}
	restart := req.notify(result, slave)
	if restart {
		req.setBusLostRetries(0)
		h.nextRequests.Push(req)
		return
	}
	if req.deleteOnFinish() {
		return
	}
	h.finishedRequests.Push(req)
}

// setState transitions to next, handling the bus-lost retry policy and
// notifying the current request exactly once on a terminal outcome.
func (h *Handler) setState(next BusState, result error) {
	if result != nil && h.currentRequest != nil {
		retryable := errors.Is(result, ebus.ErrSend) || errors.Is(result, ebus.ErrCRC) || errors.Is(result, ebus.ErrTimeout) || errors.Is(result, ebus.ErrAck) || errors.Is(result, ebus.ErrBusLost)
		if retryable && h.currentRequest.busLostRetries() < h.busLostRetries {
			// Same request, still at the front of nextRequests (see
			// finishCurrentRequest) — clearing currentRequest is enough to
			// let the next StateReady cycle Peek and retry it; pushing it
			// again here would duplicate the entry.
			h.currentRequest.setBusLostRetries(h.currentRequest.busLostRetries() + 1)
			h.currentRequest = nil
		} else {
			h.finishCurrentRequest(result, nil)
		}
	} else if result != nil {
		h.finishCurrentRequest(result, nil)
	}

	if next == StateNoSignal {
		h.drainOnNoSignal()
	}
	if next == StateReady || next == StateSkip {
		h.repeat = false
	}
	if next != h.state {
		h.log.Debugf("state %s -> %s", h.state, next)
	}
	h.state = next
	h.signalOK.Store(next != StateNoSignal)
}

// drainOnNoSignal fails every queued request immediately: there is no
// bus to arbitrate for.
func (h *Handler) drainOnNoSignal() {
	for {
		req, ok := h.nextRequests.Pop(0)
		if !ok {
			break
		}
		if !req.notify(ebus.ErrNoSignal, ebus.NewSymbolBuffer(true)) {
			if !req.deleteOnFinish() {
				h.finishedRequests.Push(req)
			}
		}
	}
}

// addSeenAddress records that addr was observed, tracking its
// responsible master for lock-count auto-detection.
func (h *Handler) addSeenAddress(addr byte) {
	if !ebus.IsValidAddress(addr, true) || addr == ebus.BROADCAST {
		return
	}
	master := ebus.MasterAddress(addr)
	masterSeen := master == ebus.SYN || h.addresses.Seen(master)
	h.addresses.MarkSeen(addr)
	if masterSeen {
		return
	}
	h.addresses.MarkSeen(master)
	if master == h.ownMaster {
		// Already counted at construction; our own master address
		// isn't a new participant.
		return
	}
	count := int(h.masterCount.Add(1))
	if h.autoLockCount && count > h.lockCount {
		h.lockCount = count
	}
}

// receiveCompleted is called once a passively observed (or
// self-initiated) command/response pair has fully arrived, for message
// lookup, decoding, and capture bookkeeping.
func (h *Handler) receiveCompleted(master, slave *ebus.SymbolBuffer, err error) {
	if master.Size() < 4 {
		return
	}
	dst := master.At(1)
	pb, sb := master.At(2), master.At(3)
	msg := h.catalog.Find(dst, pb, sb)
	known := msg != nil
	h.grabber.Record(master, slave, known)
	if !known || err != nil {
		return
	}
	if serr := msg.StoreLastData(master, slave); serr != nil {
		h.log.Debugf("store data for %s.%s: %v", msg.Circuit(), msg.Name(), serr)
		return
	}
	decoded, derr := msg.DecodeLastData(-1)
	if derr != nil {
		h.log.Debugf("decode %s.%s: %v", msg.Circuit(), msg.Name(), derr)
		return
	}
	h.log.Infof("%s.%s=%s", msg.Circuit(), msg.Name(), decoded)
}
