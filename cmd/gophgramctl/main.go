package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophgram/internal/ctl"
)

func main() {
	if err := ctl.NewRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
