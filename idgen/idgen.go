// Package idgen generates identifiers for showcase controllers and the
// events they schedule.
package idgen

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

var (
	defaultMu           sync.Mutex
	defaultInstantiated bool
	defaultGenerator    Generator
)

// NewSequential returns a generator whose first emitted ID is "1". The IDs
// are deterministic, which keeps recorded runs comparable.
func NewSequential() Generator {
	return &sequentialGenerator{}
}

// NewXID returns a generator backed by globally unique xids.
func NewXID() Generator {
	return xidGenerator{}
}

// UseSequential makes Default return a sequential generator. It panics once
// the default generator has been handed out.
func UseSequential() {
	setDefault(NewSequential())
}

// UseXID makes Default return an xid generator. It panics once the default
// generator has been handed out.
func UseXID() {
	setDefault(NewXID())
}

func setDefault(g Generator) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultInstantiated {
		panic("cannot change id generator type after using it")
	}

	defaultGenerator = g
	defaultInstantiated = true
}

// Default returns the process-wide generator, sequential unless configured
// otherwise.
func Default() Generator {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if !defaultInstantiated {
		defaultGenerator = NewSequential()
		defaultInstantiated = true
	}

	return defaultGenerator
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.next, 1), 10)
}

type xidGenerator struct{}

func (xidGenerator) Generate() string {
	return xid.New().String()
}
