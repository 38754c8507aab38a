// Package bootinfo implements a persistent, filesystem-independent
// key/value store ("boot variables") used to communicate boot-health
// and configuration data between a bootloader, an early-userspace
// agent, and a running system. It is resilient to power loss: the
// store lives in two redundant slots at fixed offsets on a raw block
// device, and a write only ever touches the slot that was not current
// before the write, so a crash mid-write leaves the prior slot intact.
package bootinfo

import "go.uber.org/zap"

// OpenFlag controls how Open behaves.
type OpenFlag uint

const (
	// OpenReadOnly opens the store for reading only; no device or lock
	// writes occur, and the device need not be writeable.
	OpenReadOnly OpenFlag = 1 << 0
	// OpenForceInit re-initializes the store even if a valid slot is
	// found. Mutually exclusive with OpenReadOnly.
	OpenForceInit OpenFlag = 1 << 1
)

// Context is an open bootinfo session: the handle returned by Open and
// used for every subsequent operation until Close.
type Context struct {
	cfg      Config
	dev      BlockDevice
	lock     *sessionLock
	gate     *writeGate
	readonly bool

	// current is the index (0 or 1) of the authoritative slot, or -1 if
	// neither slot is valid (only possible transiently during Open's
	// re-initialization path).
	current int
	hdr     header
	vars    *varTable

	log *zap.Logger
}

// Open discovers the storage device from cfg.Devices, acquires the
// session lock, and loads the boot variable store.
//
// OpenReadOnly and OpenForceInit together is rejected as an invalid
// argument without touching the device. A write-mode Open that finds no
// valid slot, or that is given OpenForceInit, re-initializes the store
// (preserving underscore-prefixed variables) before returning.
func Open(cfg Config, flags OpenFlag, log *zap.Logger) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}

	readonly := flags&OpenReadOnly != 0
	forceInit := flags&OpenForceInit != 0

	if readonly && forceInit {
		return nil, newErr(KindInvalidArgument, "OpenReadOnly and OpenForceInit are mutually exclusive")
	}

	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	devicePath, err := findStorageDevice(cfg.Devices)
	if err != nil {
		return nil, err
	}

	lock, err := acquireLock(cfg, !readonly)
	if err != nil {
		return nil, err
	}

	ctx, err := openWithLock(cfg, devicePath, readonly, forceInit, lock, log)
	if err != nil {
		lock.release()

		return nil, err
	}

	return ctx, nil
}

func openWithLock(cfg Config, devicePath string, readonly, forceInit bool, lock *sessionLock, log *zap.Logger) (*Context, error) {
	var gate *writeGate

	if !readonly {
		gate = newWriteGate(devicePath, log)
		if err := gate.enable(); err != nil {
			return nil, wrapErr(KindIO, err, "enable write gate")
		}
	}

	dev, err := openDevice(devicePath, readonly)
	if err != nil {
		if gate != nil {
			gate.disable()
		}

		return nil, err
	}

	slots := loadSlots(dev, cfg, log)
	current := selectCurrent(slots)

	ctx := &Context{
		cfg:      cfg,
		dev:      dev,
		lock:     lock,
		gate:     gate,
		readonly: readonly,
		current:  current,
		log:      log,
	}

	if current >= 0 {
		ctx.hdr = slots[current].hdr
		ctx.vars = parseVars(slots[current].variableArea())
	} else {
		ctx.vars = &varTable{}
	}

	if readonly {
		if current < 0 {
			dev.Close()

			return nil, newErr(KindNoValidStore, "no valid bootinfo slot found")
		}

		return ctx, nil
	}

	if current < 0 || forceInit {
		if err := ctx.reinitialize(); err != nil {
			ctx.teardown()

			return nil, err
		}
	}

	return ctx, nil
}

// reinitialize snapshots underscore-prefixed variables, zero-fills both
// slots in order (slot 0 header, slot 0 extension, slot 1 header, slot 1
// extension), resets the in-memory header to a fresh state, and persists.
func (ctx *Context) reinitialize() error {
	preserved := ctx.vars.preserveUnderscored()

	zeroHdr := make([]byte, SectorSize)
	zeroExt := make([]byte, SectorSize*int(ctx.cfg.ExtensionSectors))

	for i := 0; i < slotCount; i++ {
		if err := ctx.dev.WriteAt(zeroHdr, ctx.cfg.headerOffset(i)); err != nil {
			return wrapErr(KindIO, err, "zero-fill slot header")
		}

		if err := ctx.dev.WriteAt(zeroExt, ctx.cfg.extensionOffset(i)); err != nil {
			return wrapErr(KindIO, err, "zero-fill slot extension")
		}
	}

	if err := ctx.dev.Sync(); err != nil {
		return err
	}

	ctx.current = -1
	ctx.hdr = header{}
	ctx.vars = preserved

	return ctx.Update()
}

// teardown releases the gate and device but not the lock; used on
// failure paths inside Open, where the caller (Open) still owns and
// releases the lock itself.
func (ctx *Context) teardown() {
	if ctx.gate != nil {
		ctx.gate.disable()
	}

	if ctx.dev != nil {
		ctx.dev.Close()
	}
}

// Close releases all resources held by the session: it reverts the
// write gate (on write sessions), closes the device, and releases the
// lock, in reverse acquisition order.
func (ctx *Context) Close() error {
	ctx.teardown()

	return ctx.lock.release()
}

// Update writes out a fresh slot based on the current in-memory header
// and variable list. The destination is always the slot that was not
// current before the call; on success it becomes current (by virtue of
// its incremented serial), and the previous slot is left untouched.
func (ctx *Context) Update() error {
	if ctx.readonly {
		return ErrReadOnly
	}

	idx := 0
	if ctx.current >= 0 {
		idx = 1 - ctx.current
	}

	buf := make([]byte, ctx.cfg.slotSize())

	var hdr header
	copy(hdr.Magic[:], deviceMagic[:])
	hdr.Version = currentVersion
	hdr.Flags = ctx.hdr.Flags
	hdr.FailedBoots = ctx.hdr.FailedBoots
	hdr.ExtSectors = ctx.cfg.ExtensionSectors
	hdr.Sernum = ctx.hdr.Sernum + 1

	varArea := buf[headerSize : len(buf)-4]
	if err := ctx.vars.serialize(varArea); err != nil {
		return err
	}

	hdr.marshal(buf)
	hdr.HeaderCRC = computeHeaderCRC(buf)
	hdr.marshal(buf) // re-marshal with the CRC field populated

	extCRC := computeExtensionCRC(buf[SectorSize:])
	putLEUint32(buf[len(buf)-4:], extCRC)

	if err := ctx.dev.WriteAt(buf[:SectorSize], ctx.cfg.headerOffset(idx)); err != nil {
		return err
	}

	if err := ctx.dev.WriteAt(buf[SectorSize:], ctx.cfg.extensionOffset(idx)); err != nil {
		return err
	}

	if err := ctx.dev.Sync(); err != nil {
		return err
	}

	ctx.current = idx
	ctx.hdr = hdr

	return nil
}

func putLEUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// GetVar retrieves a single boot variable by name.
func (ctx *Context) GetVar(name string) (string, error) {
	v, ok := ctx.vars.get(name)
	if !ok {
		return "", newErr(KindNotFound, "variable "+name+" not found")
	}

	return v, nil
}

// Vars returns a snapshot of all (name, value) pairs currently held in
// memory, as a map; it carries no order (see VarNames for that).
func (ctx *Context) Vars() map[string]string {
	out := make(map[string]string, len(ctx.vars.vars))

	for _, v := range ctx.vars.vars {
		out[v.name] = v.value
	}

	return out
}

// VarNames returns the names of all variables currently held in
// memory, in their on-disk order.
func (ctx *Context) VarNames() []string {
	out := make([]string, len(ctx.vars.vars))
	for i, v := range ctx.vars.vars {
		out[i] = v.name
	}

	return out
}

// SetVar sets or deletes a boot variable. An empty value deletes the
// variable. The mutation is in-memory only; call Update to persist it.
// Returns ErrReadOnly on a read-only session.
func (ctx *Context) SetVar(name, value string) error {
	if ctx.readonly {
		return ErrReadOnly
	}

	return ctx.vars.set(name, value, ctx.cfg.varspaceSize())
}
