// Command retailctl is a small command line front end for the retail API.
//
//	retailctl [flags] login -u <username> -p <password>
//	retailctl [flags] logout
//	retailctl [flags] whoami
//	retailctl [flags] list <resource> [-page N] [-size N] [-search q] [-all]
//	retailctl [flags] listen [-for duration]
//	retailctl [flags] check [-output dir]
//
// Flags override RETAIL_* environment variables, which override .env.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "retailctl: %v\n", err)
		os.Exit(1)
	}
}
