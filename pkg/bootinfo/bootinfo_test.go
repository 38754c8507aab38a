// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package bootinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// testConfig returns a Config backed by a regular file standing in for
// the raw block device, with a small extension size so test fixtures
// stay tiny. The write-enable gate becomes a no-op for such a path,
// since no matching /sys/block entry exists.
func testConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	devPath := filepath.Join(dir, "bootdev")

	f, err := os.Create(devPath)
	require.NoError(t, err)

	cfg := Config{ExtensionSectors: 1}
	cfg, err = cfg.withDefaults()
	require.NoError(t, err)

	require.NoError(t, f.Truncate(2*cfg.slotSize()))
	require.NoError(t, f.Close())

	return Config{
		Devices:          []string{devPath},
		ExtensionSectors: 1,
		LockDir:          filepath.Join(dir, "lock"),
	}
}

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()

	return zaptest.NewLogger(t)
}

func TestForceInitThenSetGet(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	require.NoError(t, ctx.SetVar("foo", "bar"))
	require.NoError(t, ctx.Update())
	require.NoError(t, ctx.Close())

	ro, err := Open(cfg, OpenReadOnly, log)
	require.NoError(t, err)
	defer ro.Close()

	v, err := ro.GetVar("foo")
	require.NoError(t, err)
	require.Equal(t, "bar", v)
	require.False(t, ro.IsInProgress())
	require.EqualValues(t, 0, ro.FailedBootCount())
}

func TestMarkInProgressAccumulatesAcrossReopen(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	require.NoError(t, ctx.Close())

	rw1, err := Open(cfg, 0, log)
	require.NoError(t, err)
	_, err = rw1.MarkInProgress()
	require.NoError(t, err)
	require.NoError(t, rw1.Close())

	rw2, err := Open(cfg, 0, log)
	require.NoError(t, err)
	_, err = rw2.MarkInProgress()
	require.NoError(t, err)
	require.NoError(t, rw2.Close())

	ro, err := Open(cfg, OpenReadOnly, log)
	require.NoError(t, err)
	defer ro.Close()

	require.EqualValues(t, 1, ro.FailedBootCount())
	require.True(t, ro.IsInProgress())
}

func TestReinitPreservesUnderscoredVariables(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	require.NoError(t, ctx.SetVar("_keep", "1"))
	require.NoError(t, ctx.SetVar("drop", "2"))
	require.NoError(t, ctx.Update())
	require.NoError(t, ctx.Close())

	reinit, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	require.NoError(t, reinit.Close())

	ro, err := Open(cfg, OpenReadOnly, log)
	require.NoError(t, err)
	defer ro.Close()

	v, err := ro.GetVar("_keep")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	_, err = ro.GetVar("drop")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCorruptedDestinationSlotRecoversPriorState(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	require.NoError(t, ctx.Close())

	// After force-init (one update, sernum 1, slot 0 current), zero the
	// *other* slot's header sector externally to simulate a crash mid
	// write to the non-current slot. Slot 0 must remain authoritative.
	f, err := os.OpenFile(cfg.Devices[0], os.O_RDWR, 0)
	require.NoError(t, err)

	c, err := cfg.withDefaults()
	require.NoError(t, err)
	zero := make([]byte, SectorSize)
	_, err = f.WriteAt(zero, c.headerOffset(1))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ro, err := Open(cfg, OpenReadOnly, log)
	require.NoError(t, err)
	require.NoError(t, ro.Close())

	rw, err := Open(cfg, 0, log)
	require.NoError(t, err)
	require.NoError(t, rw.SetVar("x", "y"))
	require.NoError(t, rw.Update())
	require.NoError(t, rw.Close())

	final, err := Open(cfg, OpenReadOnly, log)
	require.NoError(t, err)
	defer final.Close()

	v, err := final.GetVar("x")
	require.NoError(t, err)
	require.Equal(t, "y", v)
}

func TestValueAtCapacityBoundary(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	defer ctx.Close()

	c, err := cfg.withDefaults()
	require.NoError(t, err)

	// Overhead for a single variable "v": name(1)+nul+nul+trailing-nul = 4.
	maxVal := c.varspaceSize() - len("v") - 1 - 1 - 1
	require.NoError(t, ctx.SetVar("v", repeatByte('a', maxVal)))
	require.NoError(t, ctx.Update())

	err = ctx.SetVar("v", repeatByte('a', maxVal+1))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrOversize)
}

func TestNameLengthBoundary(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	defer ctx.Close()

	ok := "a" + repeatByte('b', maxNameLen-1)
	require.Len(t, ok, maxNameLen)
	require.NoError(t, ctx.SetVar(ok, "v"))

	tooLong := ok + "c"
	err = ctx.SetVar(tooLong, "v")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNameTooLong)
}

func TestSetEmptyDeletesAndDeleteMissingNotFound(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	defer ctx.Close()

	require.NoError(t, ctx.SetVar("foo", "bar"))
	require.NoError(t, ctx.SetVar("foo", ""))

	_, err = ctx.GetVar("foo")
	require.ErrorIs(t, err, ErrNotFound)

	err = ctx.SetVar("nope", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidNameAndReadOnlyMutation(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	ctx, err := Open(cfg, OpenForceInit, log)
	require.NoError(t, err)
	require.NoError(t, ctx.SetVar("foo", "bar"))
	require.NoError(t, ctx.Update())
	require.NoError(t, ctx.Close())

	rw, err := Open(cfg, 0, log)
	require.NoError(t, err)

	err = rw.SetVar("1foo", "bar")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = rw.SetVar("foo", "")
	require.NoError(t, err) // existing var, valid delete

	err = rw.SetVar("neverset", "")
	require.ErrorIs(t, err, ErrNotFound)

	// The write session holds the exclusive lock; close it before the
	// read-only session takes its shared lock.
	require.NoError(t, rw.Close())

	ro, err := Open(cfg, OpenReadOnly, log)
	require.NoError(t, err)
	defer ro.Close()

	err = ro.SetVar("foo", "ok")
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestSerializeParseRoundTripPreservesOrder(t *testing.T) {
	tab := &varTable{}
	require.NoError(t, tab.set("a", "1", 4096))
	require.NoError(t, tab.set("b", "2", 4096))
	require.NoError(t, tab.set("c", "3", 4096))

	buf := make([]byte, 4096)
	require.NoError(t, tab.serialize(buf))

	parsed := parseVars(buf)
	require.Len(t, parsed.vars, 3)
	require.Equal(t, []variable{{"a", "1"}, {"b", "2"}, {"c", "3"}}, parsed.vars)
}

func TestSelectCurrentWrapAround(t *testing.T) {
	var slots [slotCount]loadedSlot
	slots[0] = loadedSlot{valid: true, hdr: header{Sernum: 255}}
	slots[1] = loadedSlot{valid: true, hdr: header{Sernum: 0}}
	require.Equal(t, 1, selectCurrent(slots))

	slots[0].hdr.Sernum = 0
	slots[1].hdr.Sernum = 255
	require.Equal(t, 0, selectCurrent(slots))
}

func TestOpenRejectsReadOnlyAndForceInitTogether(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	_, err := Open(cfg, OpenReadOnly|OpenForceInit, log)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOpenReadOnlyNoValidStoreFails(t *testing.T) {
	cfg := testConfig(t)
	log := testLogger(t)

	_, err := Open(cfg, OpenReadOnly, log)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoValidStore)
}

func repeatByte(c byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}

	return string(b)
}
