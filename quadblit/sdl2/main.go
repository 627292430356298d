// Command quadblit draws a PNG (or a generated checkerboard) as a textured
// quad every frame using the quad package.
package main

import (
	"flag"
	"log"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
)

func main() {
	runtime.LockOSThread()

	config, err := ParseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	app := NewQuadBlitApplication(config)
	err = app.Run()
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
