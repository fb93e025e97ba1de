//go:build windows

package main

import (
	"context"
	"time"

	"golang.org/x/term"

	"pkt.systems/gitconsole/core"
)

// watchSize polls the console geometry; Windows has no resize signal.
func watchSize(ctx context.Context, fd int, sizes chan<- core.Size) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	lastW, lastH, _ := term.GetSize(fd)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			width, height, err := term.GetSize(fd)
			if err != nil || (width == lastW && height == lastH) {
				continue
			}
			lastW, lastH = width, height
			select {
			case sizes <- core.Size{Width: width, Height: height}:
			case <-ctx.Done():
				return
			}
		}
	}
}
