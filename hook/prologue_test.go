package hook

import (
	"testing"

	"github.com/pkg/errors"
)

func pad(code ...byte) []byte {
	out := append([]byte{}, code...)
	for len(out) < codeWindow {
		out = append(out, 0xCC)
	}
	return out
}

func TestStealLength(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int
	}{
		{
			// mov [rsp+8], rbx; push rdi
			name: "exact five",
			code: pad(0x48, 0x89, 0x5C, 0x24, 0x08, 0x57),
			want: 5,
		},
		{
			// push rbx; sub rsp, 0x20
			name: "rounds up to instruction boundary",
			code: pad(0x40, 0x53, 0x48, 0x83, 0xEC, 0x20),
			want: 6,
		},
		{
			// mov r11, rsp; push rbp; push rsi
			name: "dxgi style",
			code: pad(0x4C, 0x8B, 0xDC, 0x55, 0x56, 0x57),
			want: 5,
		},
		{
			// push rbp x4; movabs rax, imm64
			name: "long instruction straddles the jump",
			code: pad(0x55, 0x55, 0x55, 0x55, 0x48, 0xB8, 1, 2, 3, 4, 5, 6, 7, 8),
			want: 14,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StealLength(tt.code)
			if err != nil {
				t.Fatalf("StealLength: %v", err)
			}
			if got != tt.want {
				t.Fatalf("StealLength = %d, want %d", got, tt.want)
			}
			if got > MaxStealLength {
				t.Fatalf("StealLength = %d exceeds %d", got, MaxStealLength)
			}
		})
	}
}

func TestStealLengthRejects(t *testing.T) {
	tests := map[string][]byte{
		"already hooked jmp":  pad(0xE9, 0x00, 0x10, 0x00, 0x00),
		"rip relative load":   pad(0x48, 0x8B, 0x05, 0x10, 0x00, 0x00, 0x00),
		"relative call":       pad(0xE8, 0x00, 0x00, 0x00, 0x00),
		"too short":           pad(0x31, 0xC0, 0xC3),
		"int3 padding":        pad(),
		"truncated":           {0x48, 0x89},
		"empty":               nil,
		"short jump in range": pad(0x90, 0xEB, 0x02, 0x90, 0x90, 0x90),
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := StealLength(code)
			if !errors.Is(err, ErrInvalidPrologue) {
				t.Fatalf("StealLength error = %v, want ErrInvalidPrologue", err)
			}
		})
	}
}
