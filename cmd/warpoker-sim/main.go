// Command warpoker-sim serves war poker games over stdin and stdout,
// for use as an external simulator of simcfr.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/timpalpant/go-simcfr/simproc"
	"github.com/timpalpant/go-simcfr/warpoker"
)

func main() {
	flag.Parse()

	if err := simproc.Serve(context.Background(), os.Stdin, os.Stdout, warpoker.NewSession); err != nil {
		glog.Fatal(err)
	}

	glog.Flush()
}
