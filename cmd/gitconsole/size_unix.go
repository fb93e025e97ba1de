//go:build !windows

package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"pkt.systems/gitconsole/core"
)

// watchSize reports terminal geometry on every SIGWINCH.
func watchSize(ctx context.Context, fd int, sizes chan<- core.Size) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGWINCH)
	defer signal.Stop(sig)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			width, height, err := term.GetSize(fd)
			if err != nil {
				continue
			}
			select {
			case sizes <- core.Size{Width: width, Height: height}:
			case <-ctx.Done():
				return
			}
		}
	}
}
