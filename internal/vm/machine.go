// Package vm implements the NN register machine (spec.md §4.6/§6, §5 "The
// VM is single-threaded... owns a contiguous memory region containing code,
// data, heap, and a downward-growing stack"). It loads a .nnep image built
// by internal/asm and executes it instruction by instruction.
//
// Grounded on _examples/original_source/src/vm/machine.h and machine.cpp:
// the general-purpose/floating register banks, the read/write/push/pop
// bounds-checked memory templates, and the allocate/resize tail-preserving
// copy are all ports of that file's structure into Go, generalized from its
// fixed 19-register C++ array into indexed Go slices.
package vm

import (
	"encoding/binary"
	"math"

	"github.com/nn-lang/nnc/internal/asm"
)

// Trap codes, spec.md §6 "VM traps".
const (
	TrapHalt               int64 = -2
	TrapBreak              int64 = -1
	TrapNone               int64 = 0
	TrapIllegalRead        int64 = 1
	TrapIllegalWrite       int64 = 2
	TrapStackOverflow      int64 = 3
	TrapStackUnderflow     int64 = 4
	TrapIllegalJump        int64 = 5
	TrapIllegalBuiltin     int64 = 6
	TrapIllegalInstruction int64 = 7
)

// general register indices 16-18 are the fixed pc/sf/sp slots (operand.go's
// regPC/regSF/regSP in internal/asm use the same numbering).
const (
	regPC = 16
	regSF = 17
	regSP = 18
)

// maxStackCap mirrors machine.cpp's "half the space or 4MB" rule.
const maxStackCap = 1 << 23

// Machine is one NN virtual machine instance. It is not safe for concurrent
// use (spec.md §5 "The VM is single-threaded").
type Machine struct {
	memory []byte

	codeStart uint64
	dataStart uint64
	fileSize  uint64 // end of the data region / start of the heap
	allocated uint64
	readOnlyEnd uint64
	stackSize uint64

	general [19]uint64 // r0-r15, pc, sf(lags), sp
	floats  [16]uint64 // f0-f15, raw bits (low 32 for f32, all 64 for f64)

	trap    int64
	started bool
	ended   bool

	// builtins services BTIN calls; nil means every BTIN traps
	// illegal_btin, matching spec.md's "no runtime library beyond VM traps"
	// non-goal unless a host wires one in.
	builtins map[uint32]func(*Machine) error
}

// New loads a .nnep image (as produced by asm.Assemble) and returns a
// Machine ready to Run. It refuses images DecodeHeader itself rejects
// (bad magic, size/length mismatch).
func New(image []byte) (*Machine, error) {
	hdr, err := asm.DecodeHeader(image)
	if err != nil {
		return nil, err
	}
	m := &Machine{builtins: map[uint32]func(*Machine) error{}}
	m.load(image, hdr)
	return m, nil
}

// RegisterBuiltin installs a host function reachable via `BTIN id`
// (spec.md's opcode table lists BTIN as a "syscall-style" call; which ids
// exist is host-defined, so this is additive rather than part of the core
// opcode semantics).
func (m *Machine) RegisterBuiltin(id uint32, fn func(*Machine) error) {
	m.builtins[id] = fn
}

func (m *Machine) load(image []byte, hdr asm.Header) {
	initial := hdr.Initial
	total := hdr.Size + initial
	m.memory = make([]byte, total)
	copy(m.memory, image)

	m.codeStart = hdr.CodeStart
	m.dataStart = hdr.DataStart
	m.fileSize = hdr.Size
	m.allocated = total
	m.readOnlyEnd = hdr.DataStart
	m.stackSize = minU64(initial/2, maxStackCap)

	m.general[regPC] = m.codeStart
	m.general[regSP] = m.allocated
	m.trap = TrapNone
	m.started = false
	m.ended = true
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// Grow extends the machine's memory by amount bytes, preserving the stack's
// contents by copying its tail to the new top (spec.md §5 "Memory resizing
// preserves the stack's contents by copying the tail"), the Go counterpart
// of machine.cpp's allocate/resize.
func (m *Machine) Grow(amount uint64) {
	oldAllocated := m.allocated
	stackStart := oldAllocated - m.stackSize
	newAllocated := oldAllocated + amount

	buf := make([]byte, newAllocated)
	copy(buf, m.memory[:stackStart])
	copy(buf[newAllocated-m.stackSize:], m.memory[stackStart:oldAllocated])

	m.memory = buf
	m.allocated = newAllocated
	m.stackSize = minU64((newAllocated-m.fileSize)/2, maxStackCap)
	if m.general[regSP] >= stackStart {
		m.general[regSP] += newAllocated - oldAllocated
	}
}

// Trap reports the most recent trap code Run/Step stopped on (TrapNone if
// the machine is still running or never trapped).
func (m *Machine) Trap() int64 { return m.trap }

// Ended reports whether the machine has halted, trapped, or never started.
func (m *Machine) Ended() bool { return m.ended }

func (m *Machine) trapWith(code int64) {
	m.trap = code
	m.ended = true
}

// Register reads a general-purpose register's raw 64-bit content. idx 0-15
// are r0-r15, 16/17/18 are pc/sf/sp.
func (m *Machine) Register(idx int) uint64 { return m.general[idx] }

// FloatRegister reads a floating register's raw bit pattern (f0-f15).
func (m *Machine) FloatRegister(idx int) uint64 { return m.floats[idx] }

// Float32 and Float64 reinterpret a floating register's bits.
func (m *Machine) Float32(idx int) float32 { return math.Float32frombits(uint32(m.floats[idx])) }
func (m *Machine) Float64(idx int) float64 { return math.Float64frombits(m.floats[idx]) }

func (m *Machine) readMem(pos uint64, width int) (uint64, bool) {
	if pos+uint64(width) > m.allocated {
		m.trapWith(TrapIllegalRead)
		return 0, false
	}
	buf := make([]byte, 8)
	copy(buf, m.memory[pos:pos+uint64(width)])
	return binary.LittleEndian.Uint64(buf), true
}

func (m *Machine) writeMem(pos uint64, bits uint64, width int) bool {
	if pos+uint64(width) > m.allocated {
		m.trapWith(TrapIllegalWrite)
		return false
	}
	if pos < m.readOnlyEnd {
		m.trapWith(TrapIllegalWrite)
		return false
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, bits)
	copy(m.memory[pos:pos+uint64(width)], buf[:width])
	return true
}

func (m *Machine) push(bits uint64, width int) bool {
	sp := m.general[regSP]
	if sp < uint64(width) || sp-uint64(width) < m.allocated-m.stackSize {
		m.trapWith(TrapStackOverflow)
		return false
	}
	sp -= uint64(width)
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, bits)
	copy(m.memory[sp:sp+uint64(width)], buf[:width])
	m.general[regSP] = sp
	return true
}

func (m *Machine) pop(width int) (uint64, bool) {
	sp := m.general[regSP]
	if sp+uint64(width) > m.allocated {
		m.trapWith(TrapStackUnderflow)
		return 0, false
	}
	buf := make([]byte, 8)
	copy(buf, m.memory[sp:sp+uint64(width)])
	v := binary.LittleEndian.Uint64(buf)
	m.general[regSP] = sp + uint64(width)
	return v, true
}

// Run executes instructions until the machine halts, traps, or runs out of
// code. It returns the trap code the machine stopped on (TrapHalt for a
// normal HLT).
func (m *Machine) Run() int64 {
	m.started = true
	if m.ended {
		m.ended = false
		m.trap = TrapNone
	}
	for !m.ended {
		m.Step()
	}
	m.started = false
	return m.trap
}

// Step executes exactly one instruction. Calling Step on an already-ended
// machine is a no-op.
func (m *Machine) Step() {
	if m.ended {
		return
	}
	pc := m.general[regPC]
	if pc < m.codeStart || pc >= m.dataStart {
		m.trapWith(TrapIllegalJump)
		return
	}
	instr, n, err := asm.DecodeInstruction(m.memory[m.codeStart:m.dataStart], int(pc-m.codeStart))
	if err != nil {
		m.trapWith(TrapIllegalInstruction)
		return
	}
	m.general[regPC] = pc + uint64(n)
	m.execute(instr)
}

func (m *Machine) addrOf(op asm.RawOperand) (uint64, bool) {
	base, ok := m.resolveLocation(*op.Loc)
	if !ok {
		return 0, false
	}
	if !op.HasOff {
		return base, true
	}
	off, ok := m.resolveLocation(*op.Off)
	if !ok {
		return 0, false
	}
	if op.OffNeg {
		return base - off, true
	}
	return base + off, true
}

func (m *Machine) resolveLocation(op asm.RawOperand) (uint64, bool) {
	switch op.Kind {
	case asm.ORegister:
		return m.general[op.Reg], true
	case asm.OAddress:
		return op.Imm, true
	default:
		m.trapWith(TrapIllegalInstruction)
		return 0, false
	}
}
