package hook

import (
	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

const (
	// MinStealLength is the size of the rel32 jump written over the target.
	MinStealLength = 5
	// MaxStealLength is the most prologue bytes the trampoline can relocate.
	MaxStealLength = 32

	// maxInstLength is the longest x86 instruction encoding.
	maxInstLength = 15
)

// codeWindow is how many bytes CreateHook reads from a target to size the
// stolen prologue.
const codeWindow = MaxStealLength + maxInstLength

// StealLength decodes the start of a 64-bit function and returns how many
// whole instructions must be copied to the trampoline to make room for the
// jump. Instructions that cannot be moved verbatim are rejected: PC relative
// operands, and anything that leaves the function before the jump fits.
// The result never exceeds MinStealLength-1+maxInstLength, well under
// MaxStealLength.
func StealLength(code []byte) (int, error) {
	n := 0
	for n < MinStealLength {
		if n >= len(code) {
			return 0, errors.Wrap(ErrInvalidPrologue, "prologue truncated")
		}
		inst, err := x86asm.Decode(code[n:], 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidPrologue, "decode at +%d: %v", n, err)
		}
		if inst.PCRel != 0 || ripRelative(inst) {
			return 0, errors.Wrapf(ErrInvalidPrologue, "pc relative %v at +%d", inst.Op, n)
		}
		switch inst.Op {
		case x86asm.RET, x86asm.LRET, x86asm.JMP, x86asm.INT, x86asm.UD2:
			return 0, errors.Wrapf(ErrInvalidPrologue, "function too short: %v at +%d", inst.Op, n)
		}
		n += inst.Len
	}
	return n, nil
}

func ripRelative(inst x86asm.Inst) bool {
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if m, ok := a.(x86asm.Mem); ok && m.Base == x86asm.RIP {
			return true
		}
	}
	return false
}
