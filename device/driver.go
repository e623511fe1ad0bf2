package device

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/franc0r/frankly-fw-update/ferrors"
	"github.com/franc0r/frankly-fw-update/firmware"
	"github.com/franc0r/frankly-fw-update/flash"
	"github.com/franc0r/frankly-fw-update/transport"
	"github.com/franc0r/frankly-fw-update/wire"
	"github.com/rs/zerolog"
)

// State is the driver's lifecycle stage.
type State int

const (
	StateUnopened State = iota
	StateOpened
	StateInitialized
	StateErasing
	StateFlashing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "Unopened"
	case StateOpened:
		return "Opened"
	case StateInitialized:
		return "Initialized"
	case StateErasing:
		return "Erasing"
	case StateFlashing:
		return "Flashing"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// constEntryOrder is the order Init reads the Const entries in. Order only
// matters for the sequence a simulated/recorded transport observes; it has
// no effect on the resulting flash layout.
var constEntryOrder = []wire.Request{
	wire.DevInfoBootloaderVersion,
	wire.DevInfoBootloaderCRC,
	wire.DevInfoVID,
	wire.DevInfoPID,
	wire.DevInfoPRD,
	wire.DevInfoUID,
	wire.FlashInfoStartAddr,
	wire.FlashInfoPageSize,
	wire.FlashInfoNumPages,
	wire.AppInfoPageIdx,
}

// Driver owns one transport and the registered entry table, and drives the
// init/erase/flash/reset/scan operations described by the bootloader
// protocol. A Driver is not safe for concurrent use: it is single-threaded
// cooperative by design, issuing one request/response round trip at a time.
type Driver struct {
	transport transport.Transport
	entries   map[wire.Request]*Entry
	progress  ProgressFunc
	logger    zerolog.Logger

	state     State
	err       error
	flashDesc *flash.Desc
}

// NewDriver builds a Driver over tr with its entry table pre-registered.
// progress may be nil.
func NewDriver(tr transport.Transport, progress ProgressFunc) *Driver {
	d := &Driver{
		transport: tr,
		entries:   make(map[wire.Request]*Entry),
		progress:  progress,
		logger:    zerolog.Nop(),
	}
	d.registerEntries()
	return d
}

// SetLogger installs the logger used for Info/Warn step-level logging.
// The transport's own per-frame Debug logging is configured separately,
// via the transport's own SetLogger.
func (d *Driver) SetLogger(logger zerolog.Logger) { d.logger = logger }

func (d *Driver) registerEntries() {
	register := func(category Category, name string, req wire.Request) {
		d.entries[req] = newEntry(category, name, req)
	}

	register(Const, "Bootloader Version", wire.DevInfoBootloaderVersion)
	register(Const, "Bootloader CRC", wire.DevInfoBootloaderCRC)
	register(Const, "Vendor ID", wire.DevInfoVID)
	register(Const, "Product ID", wire.DevInfoPID)
	register(Const, "Production Date", wire.DevInfoPRD)
	register(Const, "Unique ID", wire.DevInfoUID)
	register(Const, "Flash Start Address", wire.FlashInfoStartAddr)
	register(Const, "Flash Page Size", wire.FlashInfoPageSize)
	register(Const, "Flash Number Of Pages", wire.FlashInfoNumPages)
	register(Const, "App First Page Index", wire.AppInfoPageIdx)

	register(RO, "App CRC Calculated", wire.AppInfoCRCCalc)
	// AppInfoCRCStrd is readable but not consulted during flashing: it is
	// for device-side boot validation only (Open Question #2).
	register(RO, "App CRC Stored", wire.AppInfoCRCStrd)
	register(RO, "Page Buffer CRC", wire.PageBufferCalcCRC)

	register(RW, "Page Buffer Write Word", wire.PageBufferWriteWord)

	register(Cmd, "Page Buffer Clear", wire.PageBufferClear)
	register(Cmd, "Page Buffer Write To Flash", wire.PageBufferWriteToFlash)
	register(Cmd, "Flash Write Erase Page", wire.FlashWriteErasePage)
	register(Cmd, "Flash Write App CRC", wire.FlashWriteAppCRC)
	register(Cmd, "Start App", wire.StartApp)
	register(Cmd, "Reset Device", wire.ResetDevice)
}

// entry looks up a registered entry. Every request used by Driver is
// registered in registerEntries, so a miss here is a programming error.
func (d *Driver) entry(req wire.Request) *Entry {
	e, ok := d.entries[req]
	if !ok {
		panic(fmt.Sprintf("device: no entry registered for request %s", req))
	}
	return e
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State { return d.state }

// Err returns the first error that moved the driver into StateFailed, or
// nil if it has not failed.
func (d *Driver) Err() error { return d.err }

func (d *Driver) fail(err error) error {
	if d.err == nil {
		d.err = err
		d.state = StateFailed
	}
	return err
}

func (d *Driver) emit(p Progress) {
	if d.progress != nil {
		d.progress(p)
	}
}

// Open connects the underlying transport.
func (d *Driver) Open(ctx context.Context, params transport.OpenParams) error {
	if d.state != StateUnopened {
		return ferrors.New(ferrors.Error, "driver already opened")
	}
	if err := d.transport.Open(ctx, params); err != nil {
		return d.fail(err)
	}
	d.state = StateOpened
	d.logger.Info().Str("name", params.Name).Msg("transport opened")
	return nil
}

// Init reads every Const entry and derives the device's flash layout from
// them, registering Bootloader and Application sections.
func (d *Driver) Init(ctx context.Context) error {
	if d.state != StateOpened {
		return ferrors.New(ferrors.Error, "driver must be opened before init, was %s", d.state)
	}

	values := make(map[wire.Request]uint32, len(constEntryOrder))
	for _, req := range constEntryOrder {
		v, err := d.entry(req).ReadValue(ctx, d.transport)
		if err != nil {
			return d.fail(err)
		}
		values[req] = v
	}

	start := values[wire.FlashInfoStartAddr]
	pageSize := values[wire.FlashInfoPageSize]
	numPages := values[wire.FlashInfoNumPages]
	appPageIdx := values[wire.AppInfoPageIdx]

	desc := flash.NewDesc(start, pageSize*numPages, pageSize)
	if err := desc.AddSection("Bootloader", start, appPageIdx*pageSize); err != nil {
		return d.fail(err)
	}
	if err := desc.AddSection("Application", start+appPageIdx*pageSize, (numPages-appPageIdx)*pageSize); err != nil {
		return d.fail(err)
	}

	d.flashDesc = desc
	d.state = StateInitialized
	d.logger.Info().Uint32("start", start).Uint32("page_size", pageSize).
		Uint32("num_pages", numPages).Uint32("app_page_idx", appPageIdx).Msg("init complete")
	return nil
}

func (d *Driver) applicationSection() (flash.Section, error) {
	if d.flashDesc == nil {
		return flash.Section{}, ferrors.New(ferrors.Error, "driver must be initialized first")
	}
	app, ok := d.flashDesc.Section("Application")
	if !ok {
		return flash.Section{}, ferrors.New(ferrors.Error, "flash layout missing Application section")
	}
	return app, nil
}

// Erase erases every page of the Application section, emitting a
// ProgressErase event after each.
func (d *Driver) Erase(ctx context.Context) error {
	if d.state != StateInitialized && d.state != StateReady {
		return ferrors.New(ferrors.Error, "driver must be initialized before erase, was %s", d.state)
	}
	app, err := d.applicationSection()
	if err != nil {
		return d.fail(err)
	}

	d.state = StateErasing
	d.logger.Info().Uint32("pages", app.NumPages).Msg("erase started")
	total := int(app.NumPages)
	for i := uint32(0); i < app.NumPages; i++ {
		pageID := app.FirstPageID + i
		if err := d.entry(wire.FlashWriteErasePage).Exec(ctx, d.transport, pageID); err != nil {
			return d.fail(err)
		}
		d.emit(ProgressErase{Current: int(i) + 1, Total: total})
	}

	d.state = StateReady
	d.logger.Info().Msg("erase complete")
	return nil
}

// Flash assembles data into the Application section's pages, writes each
// page to the device's page buffer and commits it to flash, verifies the
// whole-image CRC (with one recovery pass on mismatch), writes the stored
// CRC and starts the application. Emits a ProgressFlash event per page.
func (d *Driver) Flash(ctx context.Context, data map[uint32]byte) error {
	if d.state != StateInitialized && d.state != StateReady {
		return ferrors.New(ferrors.Error, "driver must be initialized before flash, was %s", d.state)
	}
	app, err := d.applicationSection()
	if err != nil {
		return d.fail(err)
	}

	d.state = StateFlashing

	img := firmware.FromSection(app)
	if err := img.Append(data); err != nil {
		return d.fail(err)
	}

	pages := img.Pages()
	total := len(pages)
	d.logger.Info().Int("pages", total).Msg("flash started")
	for i, page := range pages {
		if err := d.entry(wire.PageBufferClear).Exec(ctx, d.transport, 0); err != nil {
			return d.fail(err)
		}

		for w := uint32(0); w < img.PageSize()/4; w++ {
			word := binary.LittleEndian.Uint32(page.Bytes[w*4 : w*4+4])
			packetID := uint8(w % 256)
			if err := d.entry(wire.PageBufferWriteWord).WriteValue(ctx, d.transport, packetID, word); err != nil {
				return d.fail(err)
			}
		}

		crc, err := d.entry(wire.PageBufferCalcCRC).ReadValue(ctx, d.transport)
		if err != nil {
			return d.fail(err)
		}
		if crc != page.CRC {
			return d.fail(ferrors.New(ferrors.Error,
				"page buffer CRC invalid for page %d: device reported %#08x, expected %#08x",
				page.ID, crc, page.CRC))
		}

		absolutePageID := page.ID + app.FirstPageID
		if err := d.entry(wire.FlashWriteErasePage).Exec(ctx, d.transport, absolutePageID); err != nil {
			return d.fail(err)
		}
		if err := d.entry(wire.PageBufferWriteToFlash).Exec(ctx, d.transport, absolutePageID); err != nil {
			return d.fail(err)
		}

		d.emit(ProgressFlash{Current: i + 1, Total: total})
	}

	deviceCRC, err := d.entry(wire.AppInfoCRCCalc).ReadValue(ctx, d.transport)
	if err != nil {
		return d.fail(err)
	}

	if deviceCRC != img.CRC() {
		d.logger.Warn().Uint32("device_crc", deviceCRC).Uint32("image_crc", img.CRC()).
			Msg("image CRC mismatch, attempting recovery pass")
		written := make(map[uint32]bool, len(pages))
		for _, p := range pages {
			written[p.ID] = true
		}
		// Recovery range is [0, len(pages)), not the whole Application
		// section.
		for pageID := uint32(0); pageID < uint32(len(pages)); pageID++ {
			if written[pageID] {
				continue
			}
			if err := d.entry(wire.FlashWriteErasePage).Exec(ctx, d.transport, pageID+app.FirstPageID); err != nil {
				return d.fail(err)
			}
		}

		deviceCRC, err = d.entry(wire.AppInfoCRCCalc).ReadValue(ctx, d.transport)
		if err != nil {
			return d.fail(err)
		}
		if deviceCRC != img.CRC() {
			return d.fail(ferrors.New(ferrors.Error, "CRC check failed"))
		}
	}

	if err := d.entry(wire.FlashWriteAppCRC).Exec(ctx, d.transport, img.CRC()); err != nil {
		return d.fail(err)
	}
	if err := d.entry(wire.StartApp).Exec(ctx, d.transport, 0); err != nil {
		return d.fail(err)
	}

	d.state = StateReady
	d.logger.Info().Msg("flash complete")
	return nil
}

// Reset issues a hardware reset. It does not change flashing state: it is
// an optional explicit reset, distinct from the StartApp Flash ends with.
func (d *Driver) Reset(ctx context.Context) error {
	if err := d.entry(wire.ResetDevice).Exec(ctx, d.transport, 0); err != nil {
		return d.fail(err)
	}
	d.logger.Info().Msg("device reset")
	return nil
}

// StartApp hands control to the application without a hardware reset.
func (d *Driver) StartApp(ctx context.Context) error {
	if err := d.entry(wire.StartApp).Exec(ctx, d.transport, 0); err != nil {
		return d.fail(err)
	}
	return nil
}

// Scan delegates to the transport's network scan, returning the node ids
// that answered a broadcast Ping.
func (d *Driver) Scan(ctx context.Context) ([]uint8, error) {
	return d.transport.ScanNetwork(ctx)
}

// Close releases the underlying transport.
func (d *Driver) Close() error {
	return d.transport.Close()
}

// DiscoveredDevice is one node found by DiscoverAndIdentify.
type DiscoveredDevice struct {
	NodeID  *uint8
	Display string
	Info    string
}

// Identify reads the single addressed device's identity Const fields.
// Unlike DiscoverAndIdentify it does not scan or change addressing; it
// reports on whatever node/port the transport is already set to.
func (d *Driver) Identify(ctx context.Context) (DiscoveredDevice, error) {
	version, err := d.entry(wire.DevInfoBootloaderVersion).ReadValue(ctx, d.transport)
	if err != nil {
		return DiscoveredDevice{}, err
	}
	vid, err := d.entry(wire.DevInfoVID).ReadValue(ctx, d.transport)
	if err != nil {
		return DiscoveredDevice{}, err
	}
	pid, err := d.entry(wire.DevInfoPID).ReadValue(ctx, d.transport)
	if err != nil {
		return DiscoveredDevice{}, err
	}
	prd, err := d.entry(wire.DevInfoPRD).ReadValue(ctx, d.transport)
	if err != nil {
		return DiscoveredDevice{}, err
	}
	uid, err := d.entry(wire.DevInfoUID).ReadValue(ctx, d.transport)
	if err != nil {
		return DiscoveredDevice{}, err
	}

	return DiscoveredDevice{
		Display: fmt.Sprintf("bootloader v%d", version),
		Info:    fmt.Sprintf("VID=%#08x PID=%#08x PRD=%#08x UID=%#08x", vid, pid, prd, uid),
	}, nil
}

// DiscoverAndIdentify scans a multi-drop transport and, for every
// responding node, switches addressing to that node and reads its identity
// Const fields to build a human-readable description. Identity reads
// bypass the entry cache (via sendStdRequest) since a single Driver's
// entry table must not let one node's cached Const values leak into
// another node's reads.
func (d *Driver) DiscoverAndIdentify(ctx context.Context) ([]DiscoveredDevice, error) {
	ids, err := d.transport.ScanNetwork(ctx)
	if err != nil {
		return nil, err
	}

	discovered := make([]DiscoveredDevice, 0, len(ids))
	for _, id := range ids {
		nodeID := id
		if err := d.transport.SetMode(transport.Specific(id)); err != nil {
			return nil, err
		}

		vid, err := sendStdRequest(ctx, d.transport, wire.DevInfoVID)
		if err != nil {
			return nil, err
		}
		pid, err := sendStdRequest(ctx, d.transport, wire.DevInfoPID)
		if err != nil {
			return nil, err
		}
		prd, err := sendStdRequest(ctx, d.transport, wire.DevInfoPRD)
		if err != nil {
			return nil, err
		}
		uid, err := sendStdRequest(ctx, d.transport, wire.DevInfoUID)
		if err != nil {
			return nil, err
		}

		discovered = append(discovered, DiscoveredDevice{
			NodeID:  &nodeID,
			Display: fmt.Sprintf("node %d", id),
			Info:    fmt.Sprintf("VID=%#08x PID=%#08x PRD=%#08x UID=%#08x", vid, pid, prd, uid),
		})
	}

	return discovered, nil
}
