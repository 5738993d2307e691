package symbolizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfscope/internal/config"
	"github.com/coral-mesh/dwarfscope/internal/inspect"
	"github.com/coral-mesh/dwarfscope/internal/testutil"
)

func newSymbolizer(t *testing.T, cfg config.SymbolizerConfig) *Symbolizer {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	s, err := inspect.Open(testutil.WriteImage(t, testutil.SampleImage()), nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	sym, err := New(s, cfg, logger)
	require.NoError(t, err)
	return sym
}

func TestResolve(t *testing.T) {
	sym := newSymbolizer(t, config.SymbolizerConfig{CacheEntries: 16})

	tests := []struct {
		name   string
		addr   uint64
		want   Symbol
		errMsg string
	}{
		{
			name: "function entry",
			addr: testutil.SampleMainLow,
			want: Symbol{FunctionName: "main", FileName: "src/demo/Main.java", Line: testutil.SampleMainLine, Source: SourceDWARF},
		},
		{
			name: "inside function",
			addr: testutil.SampleMainLow + 0x20,
			want: Symbol{FunctionName: "main", Offset: 0x20, FileName: "src/demo/Main.java", Line: testutil.SampleMainSecondLine, Source: SourceDWARF},
		},
		{
			name: "second function",
			addr: testutil.SampleHelperLow + 0x10,
			want: Symbol{FunctionName: "helper", Offset: 0x10, FileName: "src/demo/Main.java", Line: testutil.SampleHelperLine, Source: SourceDWARF},
		},
		{
			name: "symbol table fallback",
			addr: testutil.SampleStubAddr + 0x10,
			want: Symbol{FunctionName: "stub", Offset: 0x10, Source: SourceSymtab},
		},
		{
			name:   "past every function",
			addr:   testutil.SampleStubAddr + testutil.SampleStubSize,
			errMsg: "symbol not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sym.Resolve(tt.addr)
			if tt.errMsg != "" {
				require.ErrorIs(t, err, ErrNotFound)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)

			tt.want.Address = tt.addr
			tt.want.FileAddress = tt.addr
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Cache(t *testing.T) {
	sym := newSymbolizer(t, config.SymbolizerConfig{CacheEntries: 2})

	first, err := sym.Resolve(testutil.SampleMainLow)
	require.NoError(t, err)
	assert.Equal(t, 1, sym.CacheLen())

	again, err := sym.Resolve(testutil.SampleMainLow)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, sym.CacheLen())

	for _, addr := range []uint64{testutil.SampleHelperLow, testutil.SampleStubAddr} {
		_, err := sym.Resolve(addr)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, sym.CacheLen())

	// Misses are not cached.
	_, err = sym.Resolve(0x10)
	require.Error(t, err)
	assert.Equal(t, 2, sym.CacheLen())

	uncached := newSymbolizer(t, config.SymbolizerConfig{})
	_, err = uncached.Resolve(testutil.SampleMainLow)
	require.NoError(t, err)
	assert.Equal(t, 0, uncached.CacheLen())
}

func TestResolve_RuntimeAddresses(t *testing.T) {
	const load = 0x7f0000001000
	sym := newSymbolizer(t, config.SymbolizerConfig{LoadAddress: load})

	// The base comes from the executable PT_LOAD segment.
	assert.Equal(t, uint64(testutil.SampleMainLow+0x20), sym.Translate(load+0x20))

	got, err := sym.Resolve(load + 0x20)
	require.NoError(t, err)
	assert.Equal(t, "main", got.FunctionName)
	assert.Equal(t, uint64(load+0x20), got.Address)
	assert.Equal(t, uint64(testutil.SampleMainLow+0x20), got.FileAddress)

	explicit := newSymbolizer(t, config.SymbolizerConfig{LoadAddress: load, BaseAddress: 0x401040})
	got, err = explicit.Resolve(load)
	require.NoError(t, err)
	assert.Equal(t, "helper", got.FunctionName)
}

func TestResolveAll(t *testing.T) {
	sym := newSymbolizer(t, config.SymbolizerConfig{CacheEntries: 16})

	addrs := []uint64{testutil.SampleHelperLow, 0x1, testutil.SampleMainLow, testutil.SampleStubAddr}
	results, err := sym.ResolveAll(context.Background(), addrs, 2)
	require.NoError(t, err)
	require.Len(t, results, len(addrs))

	assert.Equal(t, "helper", results[0].Symbol.FunctionName)
	assert.ErrorIs(t, results[1].Err, ErrNotFound)
	assert.Equal(t, "main", results[2].Symbol.FunctionName)
	assert.Equal(t, SourceSymtab, results[3].Symbol.Source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sym.ResolveAll(ctx, addrs, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_StrippedImage(t *testing.T) {
	b := testutil.NewELF(testutil.ELFClass64)
	b.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{0xc3}})

	logger := testutil.NewTestLogger(t)
	s, err := inspect.Open(testutil.WriteImage(t, b.Bytes()), nil, logger)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = New(s, config.SymbolizerConfig{}, logger)
	assert.ErrorIs(t, err, ErrNoSymbols)
}

func TestFormatSymbol(t *testing.T) {
	tests := []struct {
		sym  Symbol
		want string
	}{
		{Symbol{FunctionName: "main", FileName: "Main.java", Line: 10}, "main (Main.java:10)"},
		{Symbol{FunctionName: "stub", Offset: 0x10}, "stub+0x10"},
		{Symbol{FunctionName: "stub"}, "stub"},
		{Symbol{FunctionName: "main", FileName: "Main.java"}, "main"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSymbol(tt.sym))
	}
}

func TestExtractPackageName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"demo.Main.run", "demo.Main"},
		{"main", ""},
		{"(*Type).Method", ""},
		{"github.com/org/pkg.Func", "github.com/org/pkg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractPackageName(tt.name), tt.name)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	c.Put(1, Symbol{FunctionName: "a"})
	c.Put(2, Symbol{FunctionName: "b"})

	// Touch 1 so 2 becomes the oldest.
	_, ok := c.Get(1)
	require.True(t, ok)
	c.Put(3, Symbol{FunctionName: "c"})

	_, ok = c.Get(2)
	assert.False(t, ok)
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", got.FunctionName)
	assert.Equal(t, 2, c.Len())

	c.Put(1, Symbol{FunctionName: "a2"})
	got, _ = c.Get(1)
	assert.Equal(t, "a2", got.FunctionName)
	assert.Equal(t, 2, c.Len())
}
