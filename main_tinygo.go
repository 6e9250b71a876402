//go:build tinygo

package main

import (
	"motive/app"
	"motive/hal"
)

func main() {
	app.Run(hal.New(), app.DefaultConfig())
}
