package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/1broseidon/winshim/internal/window"
)

func printJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printWindows(w io.Writer, windows []window.Info) {
	if len(windows) == 0 {
		fmt.Fprintln(w, "no windows")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tSIZE\tDPI\tFULLSCREEN\tTITLE")
	for _, info := range windows {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%d\t%t\t%s\n",
			info.ID,
			info.Lifecycle,
			info.Dimensions.PixelWidth,
			info.Dimensions.PixelHeight,
			info.Dimensions.DPI,
			info.Fullscreen,
			info.Title,
		)
	}
	tw.Flush()
}
