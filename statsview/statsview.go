// Package statsview serves runtime charts (heap, goroutines, GC) of the
// emulator over HTTP.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// DefaultAddress is used when Launch is given an empty address.
const DefaultAddress = "localhost:12600"

const path = "/debug/statsview"

// URL returns where the charts are served for addr.
func URL(addr string) string {
	if addr == "" {
		addr = DefaultAddress
	}
	return fmt.Sprintf("http://%s%s", addr, path)
}

// Launch starts the server on a new goroutine.
func Launch(addr string, output io.Writer) {
	if addr == "" {
		addr = DefaultAddress
	}
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()
	fmt.Fprintf(output, "stats server available at %s\n", URL(addr))
}
