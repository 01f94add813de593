package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Help(ctx context.Context) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Browse(ctx context.Context) error
	Status(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Create(ctx context.Context) error
	Contribute(ctx context.Context, args []string) error
	Release(ctx context.Context, args []string) error
	Backed(ctx context.Context) error
	Mine(ctx context.Context) error
	Refresh(ctx context.Context) error
	Switch(ctx context.Context, args []string) error
	Revoke(ctx context.Context, args []string) error
}

// runREPL reads commands from reader until EOF, "exit"/"quit" or ctx
// cancellation. Handlers report their own errors, so return values are
// ignored here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("crowdfund (%s) > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "?":
			_ = a.Help(ctx)
		case "connect":
			_ = a.Connect(ctx)
		case "disconnect":
			_ = a.Disconnect(ctx)
		case "browse":
			_ = a.Browse(ctx)
		case "status":
			_ = a.Status(ctx)
		case "l", "list":
			_ = a.List(ctx, args)
		case "show":
			_ = a.Show(ctx, args)
		case "create":
			_ = a.Create(ctx)
		case "contribute":
			_ = a.Contribute(ctx, args)
		case "release", "refund":
			_ = a.Release(ctx, args)
		case "backed":
			_ = a.Backed(ctx)
		case "mine":
			_ = a.Mine(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "switch":
			_ = a.Switch(ctx, args)
		case "revoke":
			_ = a.Revoke(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
