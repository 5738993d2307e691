package dwarf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfscope/internal/testutil"
	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

func newData(t *testing.T, info, abbrev, str []byte) *Data {
	t.Helper()
	var strR *buffer.Reader
	if str != nil {
		strR = buffer.NewReader(str)
	}
	d, err := New(buffer.NewReader(info), buffer.NewReader(abbrev), strR)
	require.NoError(t, err)
	return d
}

func TestNew_RequiresSections(t *testing.T) {
	_, err := New(nil, buffer.NewReader(nil), nil)
	assert.ErrorIs(t, err, ErrMissingSection)
	_, err = New(buffer.NewReader(nil), nil, nil)
	assert.ErrorIs(t, err, ErrMissingSection)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantFormat Format
		wantLength uint64
	}{
		{"32-bit", (&testutil.Bytes{}).U32(0x1234).Bytes(), Format32, 0x1234},
		{"reserved value stays 32-bit", (&testutil.Bytes{}).U32(0xfffffffe).Bytes(), Format32, 0xfffffffe},
		{"64-bit escape", (&testutil.Bytes{}).U32(0xffffffff).U64(0x1_0000_0000).Bytes(), Format64, 0x1_0000_0000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, length, err := DetectFormat(buffer.NewReader(tt.data), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, f)
			assert.Equal(t, tt.wantLength, length)
		})
	}

	assert.Equal(t, 4, Format32.OffsetSize())
	assert.Equal(t, 8, Format64.OffsetSize())
	assert.Equal(t, uint64(4), Format32.LengthFieldSize())
	assert.Equal(t, uint64(12), Format64.LengthFieldSize())

	_, _, err := DetectFormat(buffer.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0}), 0)
	assert.ErrorIs(t, err, buffer.ErrOutOfBounds)
}

func TestReadUnitHeader(t *testing.T) {
	t.Run("32-bit v4", func(t *testing.T) {
		data := testutil.Unit{Version: 4, AbbrevOffset: 0x40, AddrSize: 8}.Encode([]byte{0})
		u, err := ReadUnitHeader(buffer.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, Format32, u.Format)
		assert.Equal(t, uint16(4), u.Version)
		assert.Equal(t, uint64(0x40), u.AbbrevOffset)
		assert.Equal(t, uint8(8), u.AddrSize)
		assert.Equal(t, uint64(11), u.HeaderSize())
		assert.Equal(t, uint64(len(data)), u.Next())
	})

	t.Run("64-bit v3", func(t *testing.T) {
		data := testutil.Unit{Version: 3, Is64: true, AbbrevOffset: 0x10, AddrSize: 4}.Encode([]byte{0})
		u, err := ReadUnitHeader(buffer.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, Format64, u.Format)
		assert.Equal(t, uint64(23), u.HeaderSize())
		assert.Equal(t, uint64(len(data)), u.Next())
		assert.Equal(t, uint64(0x10), u.AbbrevOffset)
	})

	t.Run("v5 compile unit", func(t *testing.T) {
		body := (&testutil.Bytes{}).U16(5).U8(uint8(UnitTypeCompile)).U8(8).U32(0x20).U8(0)
		data := (&testutil.Bytes{}).U32(uint32(body.Len())).Raw(body.Bytes()...).Bytes()
		u, err := ReadUnitHeader(buffer.NewReader(data), 0)
		require.NoError(t, err)
		assert.Equal(t, UnitTypeCompile, u.Type)
		assert.Equal(t, uint64(0x20), u.AbbrevOffset)
		assert.Equal(t, uint64(12), u.HeaderSize())
	})

	t.Run("unsupported version", func(t *testing.T) {
		data := testutil.Unit{Version: 7}.Encode([]byte{0})
		_, err := ReadUnitHeader(buffer.NewReader(data), 0)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("invalid address size", func(t *testing.T) {
		data := testutil.Unit{AddrSize: 3}.Encode([]byte{0})
		_, err := ReadUnitHeader(buffer.NewReader(data), 0)
		assert.ErrorIs(t, err, ErrInvalidAddrSize)
	})

	t.Run("length past end", func(t *testing.T) {
		data := (&testutil.Bytes{}).U32(0xfffffffe).U16(4).Bytes()
		_, err := ReadUnitHeader(buffer.NewReader(data), 0)
		assert.ErrorIs(t, err, ErrUnitLength)
	})
}

type formCase struct {
	form  Form
	enc   []byte
	check func(t *testing.T, v Value)
}

func le(b ...byte) []byte { return b }

func formCases() []formCase {
	uleb := buffer.AppendULEB128(nil, 624485)
	sleb := buffer.AppendSLEB128(nil, -123456)
	block := append(buffer.AppendULEB128(nil, 3), 0x91, 0x7c, 0x06)
	longBlock := append(buffer.AppendULEB128(nil, 200), make([]byte, 200)...)
	indirect := append(buffer.AppendULEB128(nil, uint64(FormData2)), 0x34, 0x12)

	data := func(want uint64) func(t *testing.T, v Value) {
		return func(t *testing.T, v Value) {
			dv, ok := v.(DataValue)
			require.True(t, ok, "%T", v)
			assert.Equal(t, want, dv.Data)
		}
	}
	offset := func(want uint64) func(t *testing.T, v Value) {
		return func(t *testing.T, v Value) {
			ov, ok := v.(OffsetValue)
			require.True(t, ok, "%T", v)
			assert.Equal(t, want, ov.Off)
		}
	}
	blockOf := func(n int) func(t *testing.T, v Value) {
		return func(t *testing.T, v Value) {
			bv, ok := v.(BlockValue)
			require.True(t, ok, "%T", v)
			assert.Len(t, bv.Data, n)
		}
	}

	return []formCase{
		{FormFlag, le(1), func(t *testing.T, v Value) { assert.Equal(t, true, v.(FlagValue).Flag) }},
		{FormFlagPresent, nil, func(t *testing.T, v Value) { assert.IsType(t, FlagPresentValue{}, v) }},
		{FormData1, le(0x7f), data(0x7f)},
		{FormData2, le(0x34, 0x12), data(0x1234)},
		{FormData4, le(0x78, 0x56, 0x34, 0x12), data(0x12345678)},
		{FormData8, le(1, 2, 3, 4, 5, 6, 7, 8), data(0x0807060504030201)},
		{FormRef1, le(0x10), data(0x10)},
		{FormRef2, le(0x10, 0x01), data(0x110)},
		{FormRef4, le(0x10, 0, 0, 0), data(0x10)},
		{FormRef8, le(0x10, 0, 0, 0, 0, 0, 0, 0), data(0x10)},
		{FormStrx1, le(5), data(5)},
		{FormStrx2, le(5, 1), data(0x105)},
		{FormStrx3, le(1, 2, 3), data(0x030201)},
		{FormStrx4, le(1, 0, 0, 1), data(0x01000001)},
		{FormRefSig8, le(8, 7, 6, 5, 4, 3, 2, 1), data(0x0102030405060708)},
		{FormUdata, uleb, func(t *testing.T, v Value) { assert.Equal(t, uint64(624485), v.(LEBValue).Unsigned) }},
		{FormRefUdata, le(0x81, 0x01), func(t *testing.T, v Value) { assert.Equal(t, uint64(129), v.(LEBValue).Unsigned) }},
		{FormSdata, sleb, func(t *testing.T, v Value) { assert.Equal(t, int64(-123456), v.(LEBValue).Int) }},
		{FormStrp, le(0x20, 0, 0, 0), offset(0x20)},
		{FormSecOffset, le(0x30, 0, 0, 0), offset(0x30)},
		{FormRefAddr, le(0x40, 0, 0, 0), offset(0x40)},
		{FormAddr, le(0, 0x10, 0x40, 0, 0, 0, 0, 0), offset(0x401000)},
		{FormExprloc, block, blockOf(3)},
		{FormBlock, longBlock, blockOf(200)},
		{FormBlock1, le(2, 0xaa, 0xbb), blockOf(2)},
		{FormBlock2, le(1, 0, 0xaa), blockOf(1)},
		{FormBlock4, le(3, 0, 0, 0, 1, 2, 3), blockOf(3)},
		{FormData16, make([]byte, 16), blockOf(16)},
		{FormString, []byte("hello\x00"), func(t *testing.T, v Value) { assert.Equal(t, "hello", v.(StringValue).Str) }},
		{FormIndirect, indirect, func(t *testing.T, v Value) {
			dv, ok := v.(DataValue)
			require.True(t, ok, "%T", v)
			assert.Equal(t, FormData2, dv.Form)
			assert.Equal(t, uint64(0x1234), dv.Data)
		}},
	}
}

func TestDecode_EveryFormAdvancesByItsWidth(t *testing.T) {
	cases := formCases()

	abbrev := &testutil.Bytes{}
	abbrev.ULEB(1).ULEB(uint64(TagVariable)).U8(0)
	for i, c := range cases {
		abbrev.ULEB(uint64(0x3000 + i)).ULEB(uint64(c.form))
	}
	abbrev.ULEB(uint64(AttrDeclLine)).ULEB(uint64(FormData1))
	abbrev.ULEB(0).ULEB(0).ULEB(0)

	entry := &testutil.Bytes{}
	entry.ULEB(1)
	for _, c := range cases {
		entry.Raw(c.enc...)
	}
	entry.U8(0xab).U8(0)

	unit := testutil.Unit{Version: 4, AddrSize: 8}
	d := newData(t, unit.Encode(entry.Bytes()), abbrev.Bytes(), nil)

	tree := d.Decode()
	require.Empty(t, tree.Failed)
	require.Len(t, tree.Entries, 1)
	e := tree.Entries[0]
	require.Len(t, e.Attrs, len(cases)+1)

	off := uint64(unit.HeaderSize()) + 1
	for i, c := range cases {
		t.Run(c.form.String(), func(t *testing.T) {
			v := e.Attrs[i]
			h := v.Header()
			assert.Equal(t, Attr(0x3000+i), h.Attr)
			assert.Equal(t, off, h.Offset)
			assert.Equal(t, uint64(len(c.enc)), h.Width)
			c.check(t, v)
		})
		off += uint64(len(c.enc))
	}

	line, ok := e.Uint(AttrDeclLine)
	require.True(t, ok)
	assert.Equal(t, uint64(0xab), line)
}

func TestDecode_Format64OffsetWidths(t *testing.T) {
	abbrev := testutil.EncodeAbbrevs(testutil.Abbrev{
		Code: 1, Tag: uint64(TagCompileUnit),
		Attrs: [][2]uint64{
			{uint64(AttrName), uint64(FormStrp)},
			{uint64(AttrStmtList), uint64(FormSecOffset)},
			{uint64(AttrLowPC), uint64(FormAddr)},
		},
	})
	entry := (&testutil.Bytes{}).ULEB(1).U64(4).U64(0x1000).U32(0x8000).U8(0)
	unit := testutil.Unit{Version: 4, Is64: true, AddrSize: 4}
	d := newData(t, unit.Encode(entry.Bytes()), abbrev, []byte("abc\x00main.c\x00"))

	tree := d.Decode()
	require.Empty(t, tree.Failed)
	e := tree.Entries[0]

	assert.Equal(t, uint64(8), e.Val(AttrName).Header().Width)
	assert.Equal(t, uint64(8), e.Val(AttrStmtList).Header().Width)
	assert.Equal(t, uint64(4), e.Val(AttrLowPC).Header().Width)

	name, ok, err := d.AttrString(e, AttrName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "main.c", name)

	stmt, _ := e.Uint(AttrStmtList)
	assert.Equal(t, uint64(0x1000), stmt)
	lowPC, _ := e.Uint(AttrLowPC)
	assert.Equal(t, uint64(0x8000), lowPC)
}

func treeAbbrevs() []byte {
	return testutil.EncodeAbbrevs(
		testutil.Abbrev{Code: 1, Tag: uint64(TagCompileUnit), Children: true,
			Attrs: [][2]uint64{{uint64(AttrName), uint64(FormString)}}},
		testutil.Abbrev{Code: 2, Tag: uint64(TagSubprogram),
			Attrs: [][2]uint64{{uint64(AttrName), uint64(FormString)}}},
		testutil.Abbrev{Code: 3, Tag: uint64(TagBaseType)},
		testutil.Abbrev{Code: 4, Tag: uint64(TagClassType), Children: true,
			Attrs: [][2]uint64{{uint64(AttrName), uint64(FormString)}}},
	)
}

func TestDecode_ChildrenFollowHasChildrenFlag(t *testing.T) {
	entries := (&testutil.Bytes{}).
		ULEB(1).CString("a.c").
		ULEB(2).CString("f"). // no children: the next entry is a sibling
		ULEB(3).
		ULEB(4).CString("K").
		ULEB(2).CString("m").
		ULEB(0). // end of K
		ULEB(0). // end of a.c
		Bytes()

	d := newData(t, testutil.Unit{}.Encode(entries), treeAbbrevs(), nil)
	tree := d.Decode()
	require.Empty(t, tree.Failed)
	require.Len(t, tree.Entries, 1)

	cu := tree.Entries[0]
	assert.Equal(t, TagCompileUnit, cu.Tag)
	require.Len(t, cu.Children, 3)
	assert.Equal(t, TagSubprogram, cu.Children[0].Tag)
	assert.Empty(t, cu.Children[0].Children)
	assert.Equal(t, TagBaseType, cu.Children[1].Tag)

	class := cu.Children[2]
	assert.Equal(t, "K", d.Name(class))
	require.Len(t, class.Children, 1)
	assert.Equal(t, "m", d.Name(class.Children[0]))

	var count int
	for range tree.All() {
		count++
	}
	assert.Equal(t, 5, count)
}

func TestDecode_AbandonsFailingUnitOnly(t *testing.T) {
	good := func(name string) []byte {
		return testutil.Unit{}.Encode((&testutil.Bytes{}).ULEB(1).CString(name).ULEB(0).Bytes())
	}
	bad := testutil.Unit{}.Encode((&testutil.Bytes{}).ULEB(9).U8(0).Bytes())

	info := append(append(good("a.c"), bad...), good("b.c")...)
	d := newData(t, info, treeAbbrevs(), nil)

	tree := d.Decode()
	require.Len(t, tree.Failed, 1)
	assert.ErrorIs(t, tree.Failed[0], ErrUnknownAbbrev)
	assert.Equal(t, uint64(len(good("a.c"))), tree.Failed[0].Offset)
	require.NotNil(t, tree.Failed[0].Unit)

	require.Len(t, tree.Entries, 2)
	assert.Equal(t, "a.c", d.Name(tree.Entries[0]))
	assert.Equal(t, "b.c", d.Name(tree.Entries[1]))
	assert.Len(t, tree.Units, 2)
}

func TestDecode_TruncatedHeaderStopsIteration(t *testing.T) {
	good := testutil.Unit{}.Encode((&testutil.Bytes{}).ULEB(1).CString("a.c").ULEB(0).Bytes())
	// A unit length of 0x10 with only two bytes after it.
	info := append(append([]byte(nil), good...), 0x10, 0x00, 0x00, 0x00, 0x04, 0x00)

	tree := newData(t, info, treeAbbrevs(), nil).Decode()
	require.Len(t, tree.Entries, 1)
	require.Len(t, tree.Failed, 1)
	assert.Nil(t, tree.Failed[0].Unit)
	assert.Equal(t, uint64(len(good)), tree.Failed[0].Offset)
}

func TestDecode_IgnoresTrailingPadding(t *testing.T) {
	good := testutil.Unit{}.Encode((&testutil.Bytes{}).ULEB(1).CString("a.c").ULEB(0).Bytes())

	for pad := 1; pad < 4; pad++ {
		info := append(append([]byte(nil), good...), make([]byte, pad)...)

		tree := newData(t, info, treeAbbrevs(), nil).Decode()
		assert.Len(t, tree.Entries, 1, "padding %d", pad)
		assert.Empty(t, tree.Failed, "padding %d", pad)

		units := 0
		for u, err := range newData(t, info, treeAbbrevs(), nil).Units() {
			require.NoError(t, err)
			require.NotNil(t, u)
			units++
		}
		assert.Equal(t, 1, units)
	}
}

func TestAttrString_Forms(t *testing.T) {
	abbrev := testutil.EncodeAbbrevs(testutil.Abbrev{
		Code: 1, Tag: uint64(TagVariable),
		Attrs: [][2]uint64{
			{uint64(AttrName), uint64(FormStrx1)},
			{uint64(AttrLinkageName), uint64(FormStrp)},
			{uint64(AttrDeclLine), uint64(FormData1)},
		},
	})
	entry := (&testutil.Bytes{}).ULEB(1).U8(0).U32(0).U8(3).U8(0).Bytes()

	t.Run("strx is unsupported", func(t *testing.T) {
		d := newData(t, testutil.Unit{}.Encode(entry), abbrev, []byte("x\x00"))
		e := d.Decode().Entries[0]

		_, _, err := d.AttrString(e, AttrName)
		assert.ErrorIs(t, err, ErrUnsupportedForm)

		s, ok, err := d.AttrString(e, AttrLinkageName)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "x", s)

		_, ok, err = d.AttrString(e, AttrDeclLine)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = d.AttrString(e, AttrProducer)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing .debug_str", func(t *testing.T) {
		d := newData(t, testutil.Unit{}.Encode(entry), abbrev, nil)
		e := d.Decode().Entries[0]
		_, _, err := d.AttrString(e, AttrLinkageName)
		assert.ErrorIs(t, err, ErrMissingSection)
	})
}
