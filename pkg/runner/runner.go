package runner

import (
	"bytes"
	"context"
	"os"

	"github.com/dimiro1/banner"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

type Hooks struct {
	OnStart func()
	OnStop  func()
}

type Drainer interface {
	Drain() error
}

const Version = "dev"

// PrintBanner writes the startup banner to stderr. Stdout carries the
// tool protocol and must stay clean.
func PrintBanner() {
	tpl := "{{ .Title \"PULSA\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(os.Stderr, true, true, bytes.NewBufferString(tpl))
}
