package asm

import (
	"strings"
	"testing"

	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/test"
)

func newTestSession() *config.Session {
	return config.NewSession(config.Options{Target: config.Target64}, logger.NewDeferLog())
}

func TestTokenizeInstructionLine(t *testing.T) {
	src := test.SourceForTest("MOV $r0_32s, 42\n")
	toks := tokenize(&src, logger.NewDeferLog())
	var kinds []kind
	for _, tk := range toks {
		if tk.kind != tNewline && tk.kind != tEOF {
			kinds = append(kinds, tk.kind)
		}
	}
	want := []kind{tWord, tRegister, tImmediate}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d (%v)", len(kinds), len(want), kinds)
	}
	for i, k := range want {
		test.AssertEqual(t, kinds[i], k)
	}
}

// spec.md §8 property 5 (assemble/disassemble round trip): a simple
// register-immediate program survives re-assembly byte for byte.
func TestAssembleDisassembleRoundTrip(t *testing.T) {
	sess := newTestSession()
	src := test.SourceForTest("MOV $r0, 42\nADD $r0, $r0, 1\nRET\n")

	image, ok := Assemble(sess, &src)
	if !ok {
		t.Fatalf("first assembly failed")
	}

	text, err := Disassemble(image)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if !strings.Contains(text, "MOV") || !strings.Contains(text, "RET") {
		t.Fatalf("unexpected disassembly: %q", text)
	}

	sess2 := newTestSession()
	src2 := test.SourceForTest(text)
	image2, ok := Assemble(sess2, &src2)
	if !ok {
		t.Fatalf("re-assembly of disassembled text failed")
	}
	test.AssertEqualWithDiff(t, string(image2), string(image))
}

// a forward reference to a label defined later in the file must still
// resolve to the correct absolute code address (spec.md §4.5 "unfinished"
// list/pass 2).
func TestForwardLabelReference(t *testing.T) {
	sess := newTestSession()
	src := test.SourceForTest("JMP target\nNOP\nLBL target\nRET\n")

	image, ok := Assemble(sess, &src)
	if !ok {
		t.Fatalf("assembly failed")
	}

	hdr, err := DecodeHeader(image)
	if err != nil {
		t.Fatalf("bad header: %v", err)
	}
	test.AssertEqual(t, hdr.Magic, magic)

	text, err := Disassemble(image)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if !strings.Contains(text, "JMP") {
		t.Fatalf("expected a JMP in disassembly, got %q", text)
	}
}

// DB/DBS pseudo-ops share one identifier namespace with LBL, and ~name
// resolves to a buffer's byte length (spec.md §4.5).
func TestDataBuffersAndSizeRef(t *testing.T) {
	sess := newTestSession()
	src := test.SourceForTest("DBS greeting \"hi\"\nMOV $r0, ~greeting\nRET\n")

	image, ok := Assemble(sess, &src)
	if !ok {
		t.Fatalf("assembly failed")
	}
	hdr, err := DecodeHeader(image)
	if err != nil {
		t.Fatalf("bad header: %v", err)
	}
	if hdr.Size <= hdr.DataStart {
		t.Fatalf("expected a non-empty data region")
	}
	if hdr.Size != uint64(len(image)) {
		t.Fatalf("declared size %d does not match image length %d", hdr.Size, len(image))
	}
}

func TestUnknownMnemonicReportsDiagnostic(t *testing.T) {
	log := logger.NewDeferLog()
	sess := config.NewSession(config.Options{Target: config.Target64}, log)
	src := test.SourceForTest("FROBNICATE $r0\n")

	_, ok := Assemble(sess, &src)
	test.AssertEqual(t, ok, false)

	found := false
	for _, msg := range log.Done() {
		if msg.ID == logger.MsgID_Asm_UnknownMnemonic {
			found = true
		}
	}
	test.AssertEqual(t, found, true)
}

func TestUndefinedLabelReportsDiagnostic(t *testing.T) {
	log := logger.NewDeferLog()
	sess := config.NewSession(config.Options{Target: config.Target64}, log)
	src := test.SourceForTest("JMP nowhere\n")

	_, ok := Assemble(sess, &src)
	test.AssertEqual(t, ok, false)

	found := false
	for _, msg := range log.Done() {
		if msg.ID == logger.MsgID_Asm_UnknownIdentifier {
			found = true
		}
	}
	test.AssertEqual(t, found, true)
}

func TestMemoryOperandRoundTrip(t *testing.T) {
	sess := newTestSession()
	src := test.SourceForTest("LOAD $r0, [$r1 + 8]\nSTOR [$r1], $r0\nRET\n")

	image, ok := Assemble(sess, &src)
	if !ok {
		t.Fatalf("assembly failed")
	}
	text, err := Disassemble(image)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if !strings.Contains(text, "LOAD") || !strings.Contains(text, "STOR") {
		t.Fatalf("unexpected disassembly: %q", text)
	}
}
