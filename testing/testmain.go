// Package testing provides utilities for writing on-target tests.
package testing

import (
	"embedded/rtos"
	"os"
	"syscall"
	"testing"

	"github.com/embeddedgo/fs/termfs"

	"github.com/render-se/fcio/stm32/usart"
)

// TestMain should be used as TestMain for all tests in this repo.  It routes
// stdout and stderr to the debug console so test output is visible on the
// bench.
func TestMain(m *testing.M) {
	console := usart.USART3
	console.Enable(115200)

	fs := termfs.NewLight("termfs", nil, console)
	rtos.Mount(fs, "/dev/console")

	var err error
	os.Stdout, err = os.OpenFile("/dev/console", syscall.O_WRONLY, 0)
	if err != nil {
		panic(err)
	}
	os.Stderr = os.Stdout

	// TODO find a way to pass these from the 'go test' command
	os.Args = append(os.Args, "-test.v")

	os.Exit(m.Run())
}
