// Package script keeps the validation libraries of contracts compiled and
// ready to run. Libraries are WebAssembly modules identified by their LibID.
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"

	"RGBStd/internal/logger"
	"RGBStd/internal/rgb"
	"RGBStd/internal/validation"
)

var (
	// ErrNotLoaded is returned when a library has not been loaded.
	ErrNotLoaded = errors.New("library not loaded")

	// ErrNoEntry is returned when a library does not export the called function.
	ErrNoEntry = errors.New("function not exported")
)

// Pool compiles each library once and keeps it for later instantiation.
// It is safe for concurrent use.
type Pool struct {
	runtime wazero.Runtime                      // runtime is the wazero runtime
	modules map[rgb.LibID]wazero.CompiledModule // modules maps library id to compiled module
	mu      sync.RWMutex                        // mu protects modules
}

// New creates a pool with its own runtime.
func New(ctx context.Context) *Pool {
	return &Pool{
		runtime: wazero.NewRuntime(ctx),
		modules: make(map[rgb.LibID]wazero.CompiledModule),
	}
}

// Load compiles lib unless a library with the same id is already loaded.
func (p *Pool) Load(ctx context.Context, lib *rgb.Lib) (rgb.LibID, error) {
	id := lib.ID()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.modules[id]; ok {
		return id, nil
	}

	compiled, err := p.runtime.CompileModule(ctx, lib.Code)
	if err != nil {
		return id, fmt.Errorf("compile library %s:\n%w", id, err)
	}

	p.modules[id] = compiled

	return id, nil
}

// Resolve loads every library of the schema script of api.
// A library missing from the consignment is reported as *validation.MissingLibError.
func (p *Pool) Resolve(ctx context.Context, api validation.ConsignmentAPI) error {
	program, err := api.Program(api.Schema().Script)
	if err != nil {
		return err
	}

	for _, lib := range program.Libs {
		if _, err := p.Load(ctx, lib); err != nil {
			return err
		}
	}

	logger.Debug("script resolved", "libs", len(program.Libs))

	return nil
}

// Has reports whether a library is loaded.
func (p *Pool) Has(id rgb.LibID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.modules[id]

	return ok
}

// Call instantiates a loaded library and calls one of its exported functions.
func (p *Pool) Call(ctx context.Context, id rgb.LibID, fn string, params ...uint64) ([]uint64, error) {
	p.mu.RLock()
	compiled, ok := p.modules[id]
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, id)
	}

	instance, err := p.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, fmt.Errorf("instantiate library %s:\n%w", id, err)
	}
	defer instance.Close(ctx)

	entry := instance.ExportedFunction(fn)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoEntry, fn, id)
	}

	results, err := entry.Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("call %s in %s:\n%w", fn, id, err)
	}

	return results, nil
}

// Unload removes a library from the pool.
func (p *Pool) Unload(ctx context.Context, id rgb.LibID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if compiled, ok := p.modules[id]; ok {
		compiled.Close(ctx)
		delete(p.modules, id)
	}
}

// Close releases every compiled library and the runtime.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, compiled := range p.modules {
		compiled.Close(ctx)
		delete(p.modules, id)
	}

	return p.runtime.Close(ctx)
}
