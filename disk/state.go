package disk

import (
	"encoding/binary"
	"fmt"
	"io"
)

// sectorsPerDrive is the fixed sector count every loaded Drive image
// carries, matching LoadImage's length check.
const sectorsPerDrive = NumCylinders * NumHeads * NumSectors

// DriveState is the byte-exact, on-the-wire shape of a Drive.
type DriveState struct {
	Sectors                                     [sectorsPerDrive]Sector
	Head, Cylinder, TargetCylinder, SectorIndex int32
	Loaded                                       bool
}

// State is the byte-exact, on-the-wire shape of a Controller, per
// spec.md §4.9.
type State struct {
	Drives [NumDrives]DriveState

	KSTAT          uint16
	KDataRead      uint16
	KData          uint16
	HasKData       bool
	KADR           uint16
	KCOMM          uint16
	Disk           int32
	RecNo          uint8
	Restore        bool
	SyncWritten    bool
	BitClockEnable bool
	WDInit         bool
	SeclateEnable  bool
	SectorWord     int32

	SectorCycle, WordCycle, SeekCycle, SeclateCycle int32
	Pending                                          uint16
}

// Snapshot captures c's state.
func (c *Controller) Snapshot() State {
	s := State{
		KSTAT:          c.kstat,
		KDataRead:      c.kdataRead,
		KData:          c.kdata,
		HasKData:       c.hasKData,
		KADR:           c.kadr,
		KCOMM:          c.kcomm,
		Disk:           int32(c.disk),
		RecNo:          c.recNo,
		Restore:        c.restore,
		SyncWritten:    c.syncWritten,
		BitClockEnable: c.bitClockEnable,
		WDInit:         c.wdinit,
		SeclateEnable:  c.seclateEnable,
		SectorWord:     int32(c.sectorWord),
		SectorCycle:    c.sectorCycle,
		WordCycle:      c.wordCycle,
		SeekCycle:      c.seekCycle,
		SeclateCycle:   c.seclateCycle,
		Pending:        c.pending,
	}
	for i, d := range c.drives {
		ds := DriveState{
			Head:           int32(d.Head),
			Cylinder:       int32(d.Cylinder),
			TargetCylinder: int32(d.TargetCylinder),
			SectorIndex:    int32(d.Sector),
			Loaded:         d.Loaded,
		}
		copy(ds.Sectors[:], d.Sectors)
		s.Drives[i] = ds
	}
	return s
}

// Restore installs a previously captured State.
func (c *Controller) Restore(s State) {
	c.kstat = s.KSTAT
	c.kdataRead = s.KDataRead
	c.kdata = s.KData
	c.hasKData = s.HasKData
	c.kadr = s.KADR
	c.kcomm = s.KCOMM
	c.disk = int(s.Disk)
	c.recNo = s.RecNo
	c.restore = s.Restore
	c.syncWritten = s.SyncWritten
	c.bitClockEnable = s.BitClockEnable
	c.wdinit = s.WDInit
	c.seclateEnable = s.SeclateEnable
	c.sectorWord = int(s.SectorWord)
	c.sectorCycle = s.SectorCycle
	c.wordCycle = s.WordCycle
	c.seekCycle = s.SeekCycle
	c.seclateCycle = s.SeclateCycle
	c.pending = s.Pending

	for i, ds := range s.Drives {
		d := c.drives[i]
		d.Head = int(ds.Head)
		d.Cylinder = int(ds.Cylinder)
		d.TargetCylinder = int(ds.TargetCylinder)
		d.Sector = int(ds.SectorIndex)
		d.Loaded = ds.Loaded
		if len(d.Sectors) != sectorsPerDrive {
			d.Sectors = make([]Sector, sectorsPerDrive)
		}
		copy(d.Sectors, ds.Sectors[:])
	}
}

// WriteState writes c's state to w in the big-endian, fixed-size
// encoding §4.9 requires.
func (c *Controller) WriteState(w io.Writer) error {
	s := c.Snapshot()
	if err := binary.Write(w, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("disk: WriteState: %w", err)
	}
	return nil
}

// ReadState reads a state previously written by WriteState and
// installs it into c.
func (c *Controller) ReadState(r io.Reader) error {
	var s State
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return fmt.Errorf("disk: ReadState: %w", err)
	}
	c.Restore(s)
	return nil
}
