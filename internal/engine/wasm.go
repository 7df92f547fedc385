package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"jp2kd/internal/common/fsutil"
)

const (
	wasmPageSize = 65536
	maxWasmPages = 65536
)

// Exports a guest module must provide.
var requiredFuncs = []string{"malloc", "free", "evaluate"}

// WasmEngine runs a decoder guest compiled to WebAssembly. Engines built from
// the same module bytes and memory limit share one wazero runtime.
type WasmEngine struct {
	module         []byte
	maxMemoryBytes int64
	key            string
}

// NewWasmEngine returns an engine for the given module bytes. maxMemoryBytes
// caps each guest's linear memory; zero leaves wazero's default limit.
func NewWasmEngine(module []byte, maxMemoryBytes int64) *WasmEngine {
	sum := sha256.Sum256(module)
	return &WasmEngine{
		module:         module,
		maxMemoryBytes: maxMemoryBytes,
		key:            fmt.Sprintf("wasm:%s:%d", hex.EncodeToString(sum[:8]), memoryLimitPages(maxMemoryBytes)),
	}
}

// LoadWasmEngine reads a module from path ("~" is expanded).
func LoadWasmEngine(path string, maxMemoryBytes int64) (*WasmEngine, error) {
	b, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine module: %w", err)
	}
	return NewWasmEngine(b, maxMemoryBytes), nil
}

// Connect returns the shared connection for this module, compiling it on
// first use.
func (e *WasmEngine) Connect(ctx context.Context) (Connection, error) {
	return Shared(ctx, e.key, e.build)
}

func (e *WasmEngine) build(ctx context.Context) (Connection, error) {
	log := Logger().With(zap.String("engine", e.key))
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if pages := memoryLimitPages(e.maxMemoryBytes); pages > 0 {
		cfg = cfg.WithMemoryLimitPages(pages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}
	// Emscripten builds notify the host when memory grows; nothing to do here.
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(context.Context, uint32) {}).
		Export("emscripten_notify_memory_growth").
		Instantiate(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate env: %w", err)
	}
	compiled, err := rt.CompileModule(ctx, e.module)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("compile engine module: %w", err)
	}
	if err := checkExports(compiled); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	log.Info("engine connected", zap.Uint32("memory_limit_pages", memoryLimitPages(e.maxMemoryBytes)))
	return &wasmConnection{runtime: rt, compiled: compiled}, nil
}

func checkExports(m wazero.CompiledModule) error {
	funcs := m.ExportedFunctions()
	for _, name := range requiredFuncs {
		if _, ok := funcs[name]; !ok {
			return fmt.Errorf("engine module missing export %q", name)
		}
	}
	if _, ok := m.ExportedMemories()["memory"]; !ok {
		return fmt.Errorf("engine module missing export %q", "memory")
	}
	return nil
}

func memoryLimitPages(bytes int64) uint32 {
	if bytes <= 0 {
		return 0
	}
	pages := (bytes + wasmPageSize - 1) / wasmPageSize
	if pages > maxWasmPages {
		pages = maxWasmPages
	}
	return uint32(pages)
}

type wasmConnection struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

func (c *wasmConnection) NewHandle(ctx context.Context, opts HandleOptions) (Handle, error) {
	stdout := newConsoleWriter(opts.Name, "stdout")
	stderr := newConsoleWriter(opts.Name, "stderr")
	cfg := wazero.NewModuleConfig().
		WithName(opts.Name).
		WithStdout(stdout).
		WithStderr(stderr).
		WithStartFunctions("_initialize")
	mod, err := c.runtime.InstantiateModule(ctx, c.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate guest %q: %w", opts.Name, err)
	}
	h := &wasmHandle{
		name:      opts.Name,
		mod:       mod,
		memory:    mod.ExportedMemory("memory"),
		malloc:    mod.ExportedFunction("malloc"),
		free:      mod.ExportedFunction("free"),
		evaluate:  mod.ExportedFunction("evaluate"),
		maxResult: opts.MaxResultBytes,
		consoles:  []*consoleWriter{stdout, stderr},
	}
	if err := growTo(h.memory, opts.InitialMemoryBytes); err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	Logger().Debug("guest instantiated", zap.String("handle", opts.Name), zap.Uint32("memory_bytes", h.memory.Size()))
	return h, nil
}

func growTo(mem api.Memory, bytes int64) error {
	if bytes <= 0 || int64(mem.Size()) >= bytes {
		return nil
	}
	want := memoryLimitPages(bytes)
	have := mem.Size() / wasmPageSize
	if _, ok := mem.Grow(want - have); !ok {
		return fmt.Errorf("grow guest memory to %d bytes", bytes)
	}
	return nil
}
