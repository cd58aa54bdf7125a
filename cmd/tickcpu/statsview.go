package main

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const STATSVIEW_ADDR = "localhost:12600"
const statsview_url = "/debug/statsview"

// launchStatsview serves live runtime charts from a new goroutine.
func launchStatsview(output io.Writer, addr string) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at http://%s%s\n", addr, statsview_url)
}
