package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jwtly10/jscc"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var version = jscc.VERSION
