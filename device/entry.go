// Package device implements the Frankly bootloader device entry table and
// the driver state machine (init/erase/flash/reset/scan) built on top of
// wire, flash, firmware and a transport.Transport.
package device

import (
	"context"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/franc0r/frankly-fw-update/transport"
	"github.com/franc0r/frankly-fw-update/wire"
)

// Category classifies how a device entry may be accessed.
type Category int

const (
	// Const entries never change on the device; read once, cached forever.
	Const Category = iota
	// RO entries are read only but may change; always re-read from the device.
	RO
	// RW entries may be read and written.
	RW
	// Cmd entries are execute-only.
	Cmd
)

func (c Category) String() string {
	switch c {
	case Const:
		return "Const"
	case RO:
		return "RO"
	case RW:
		return "RW"
	case Cmd:
		return "Cmd"
	default:
		return "Unknown"
	}
}

// IsReadable reports whether entries of this category support ReadValue.
func (c Category) IsReadable() bool { return c == Const || c == RO || c == RW }

// IsWriteable reports whether entries of this category support WriteValue.
func (c Category) IsWriteable() bool { return c == RW }

// IsExecutable reports whether entries of this category support Exec.
func (c Category) IsExecutable() bool { return c == Cmd }

// IsConst reports whether this category is cached after its first read.
func (c Category) IsConst() bool { return c == Const }

// Entry is one pre-registered device value, keyed by its wire request code.
type Entry struct {
	category Category
	name     string
	request  wire.Request

	cached bool
	value  uint32
}

func newEntry(category Category, name string, request wire.Request) *Entry {
	return &Entry{category: category, name: name, request: request}
}

// Category returns the entry's access category.
func (e *Entry) Category() Category { return e.category }

// Name returns the entry's human-readable name.
func (e *Entry) Name() string { return e.name }

// Request returns the entry's wire request code.
func (e *Entry) Request() wire.Request { return e.request }

// ReadValue returns the entry's value, reading it from the device unless it
// is a Const entry that has already been cached.
func (e *Entry) ReadValue(ctx context.Context, tr transport.Transport) (uint32, error) {
	if !e.category.IsReadable() {
		return 0, ferrors.New(ferrors.Error, "device entry %q of type %s is not readable", e.name, e.category)
	}
	if e.category.IsConst() && e.cached {
		return e.value, nil
	}

	value, err := sendStdRequest(ctx, tr, e.request)
	if err != nil {
		return 0, err
	}
	e.value = value
	e.cached = true
	return value, nil
}

// WriteValue writes payload to an RW entry under packetID, validating that
// the device echoes both the request and the written payload back.
func (e *Entry) WriteValue(ctx context.Context, tr transport.Transport, packetID uint8, payload uint32) error {
	if !e.category.IsWriteable() {
		return ferrors.New(ferrors.Error, "device entry %q of type %s is not writeable", e.name, e.category)
	}

	request := wire.NewRequest(e.request, packetID, payload)
	if err := tr.Send(ctx, request); err != nil {
		return err
	}
	response, err := tr.Receive(ctx)
	if err != nil {
		return err
	}
	if err := wire.IsResponseOK(request, response); err != nil {
		return err
	}
	if err := wire.IsResponseDataOK(request, response); err != nil {
		return err
	}

	e.value = response.Payload
	e.cached = true
	return nil
}

// Exec issues a Cmd entry with the given argument word as payload.
func (e *Entry) Exec(ctx context.Context, tr transport.Transport, argument uint32) error {
	if !e.category.IsExecutable() {
		return ferrors.New(ferrors.Error, "device entry %q of type %s is not executable", e.name, e.category)
	}

	request := wire.NewRequest(e.request, 0, argument)
	if err := tr.Send(ctx, request); err != nil {
		return err
	}
	response, err := tr.Receive(ctx)
	if err != nil {
		return err
	}
	return wire.IsResponseOK(request, response)
}

// sendStdRequest issues a bare std request (packet id 0, payload 0) and
// validates the response, bypassing any entry cache. Used internally by
// Entry.ReadValue and by driver code (e.g. DiscoverAndIdentify) that must
// read the same request fresh from several different nodes in turn.
func sendStdRequest(ctx context.Context, tr transport.Transport, req wire.Request) (uint32, error) {
	request := wire.NewRequest(req, 0, 0)
	if err := tr.Send(ctx, request); err != nil {
		return 0, err
	}
	response, err := tr.Receive(ctx)
	if err != nil {
		return 0, err
	}
	if err := wire.IsResponseOK(request, response); err != nil {
		return 0, err
	}
	return response.Payload, nil
}
