package vm

import (
	"testing"

	"github.com/nn-lang/nnc/internal/asm"
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/test"
)

func assembleOrFatal(t *testing.T, src string) []byte {
	t.Helper()
	sess := config.NewSession(config.Options{Target: config.Target64}, logger.NewDeferLog())
	source := test.SourceForTest(src)
	image, ok := asm.Assemble(sess, &source)
	if !ok {
		t.Fatalf("assembly failed for %q", src)
	}
	return image
}

func TestArithmeticAddition(t *testing.T) {
	image := assembleOrFatal(t, "MOV $r0, 2\nMOV $r1, 3\nADD $r0, $r0, $r1\nHLT\n")
	m, err := New(image)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	trap := m.Run()
	test.AssertEqual(t, trap, TrapHalt)
	test.AssertEqual(t, m.Register(0), uint64(5))
}

func TestStackPushPop(t *testing.T) {
	image := assembleOrFatal(t, "MOV $r0, 42\nPUSH $r0\nPOP $r1\nHLT\n")
	m, err := New(image)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m.Run()
	test.AssertEqual(t, m.Register(1), uint64(42))
}

func TestConditionalJumpSkipsInstruction(t *testing.T) {
	src := "MOV $r0_8, 0\nJNCH $r0_8, skip\nMOV $r1, 1\nLBL skip\nMOV $r2, 1\nHLT\n"
	image := assembleOrFatal(t, src)
	m, err := New(image)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m.Run()
	test.AssertEqual(t, m.Register(1), uint64(0))
	test.AssertEqual(t, m.Register(2), uint64(1))
}

func TestCallAndReturn(t *testing.T) {
	src := "JMP main\nLBL addone\nADD $r0, $r0, 1\nRET\nLBL main\nMOV $r0, 41\nCALL addone\nHLT\n"
	image := assembleOrFatal(t, src)
	m, err := New(image)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m.Run()
	test.AssertEqual(t, m.Register(0), uint64(42))
}

func TestFloatArithmetic(t *testing.T) {
	src := "MOV $f0, 1.5_f\nMOV $f1, 2.5_f\nADDF $f0, $f0, $f1\nHLT\n"
	image := assembleOrFatal(t, src)
	m, err := New(image)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m.Run()
	test.AssertEqual(t, m.Float32(0), float32(4))
}

func TestUnknownMemoryReadTraps(t *testing.T) {
	image := assembleOrFatal(t, "LOAD $r0, [$r1]\nHLT\n")
	m, err := New(image)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m.general[1] = 1 << 40 // far out of bounds
	trap := m.Run()
	test.AssertEqual(t, trap, TrapIllegalRead)
}

func TestStackOverflowTrap(t *testing.T) {
	m := &Machine{memory: make([]byte, 16), allocated: 16, stackSize: 4}
	m.general[regSP] = 16
	ok := m.push(0, 8)
	test.AssertEqual(t, ok, false)
	test.AssertEqual(t, m.trap, TrapStackOverflow)
}

func TestStackUnderflowTrap(t *testing.T) {
	m := &Machine{memory: make([]byte, 16), allocated: 16, stackSize: 4}
	m.general[regSP] = 16
	_, ok := m.pop(8)
	test.AssertEqual(t, ok, false)
	test.AssertEqual(t, m.trap, TrapStackUnderflow)
}

// spec.md §5 "Memory resizing preserves the stack's contents by copying the
// tail": a value pushed before Grow must still be there after.
func TestGrowPreservesStackTail(t *testing.T) {
	m := &Machine{memory: make([]byte, 64), allocated: 64, stackSize: 32, fileSize: 32}
	m.general[regSP] = 64
	if ok := m.push(0xdeadbeef, 8); !ok {
		t.Fatalf("push failed")
	}
	m.Grow(64)
	v, ok := m.pop(8)
	if !ok {
		t.Fatalf("pop after grow failed")
	}
	test.AssertEqual(t, v, uint64(0xdeadbeef))
}

func TestWriteToReadOnlyRegionTraps(t *testing.T) {
	image := assembleOrFatal(t, "STOR [0], 1\nHLT\n")
	m, err := New(image)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	trap := m.Run()
	test.AssertEqual(t, trap, TrapIllegalWrite)
}
