package cpu_test

import (
	"testing"

	"github.com/render-se/fcio/stm32/cpu"
	fciotesting "github.com/render-se/fcio/testing"
)

func TestMain(m *testing.M) { fciotesting.TestMain(m) }

func TestMakePaddedSlice(t *testing.T) {
	for _, size := range []int{1, 31, 32, 33, 64, 100} {
		p := cpu.MakePaddedSlice[byte](size)
		if len(p) != size {
			t.Errorf("size %d: len %d", size, len(p))
		}
		if !cpu.IsPadded(p) {
			t.Errorf("size %d: not padded", size)
		}
	}
}

func TestIsPaddedRejectsUnaligned(t *testing.T) {
	p := cpu.MakePaddedSlice[byte](64)
	if cpu.IsPadded(p[1:]) {
		t.Error("shifted slice reported as padded")
	}
}
