package testutil

import "encoding/hex"

// Layout of the image built by SampleImage.
const (
	SampleTextBase = 0x401000

	SampleMainLow    = 0x401000
	SampleMainHigh   = 0x401040
	SampleHelperLow  = 0x401040
	SampleHelperHigh = 0x401080
	// SampleStubAddr is covered by .symtab only.
	SampleStubAddr = 0x401100
	SampleStubSize = 0x20

	SampleUnitName  = "Main.java"
	SampleSourceDir = "src/demo"
	SampleClassName = "demo.Main"

	SampleBuildID = "c0ffee0123456789"

	SampleMetadataArgs  = ".debug.svm.imagebuild.arguments"
	SampleMetadataProps = ".debug.svm.imagebuild.java.properties"
)

// Sample line rows: main starts at line 10, its second row at 0x401010 is
// line 11, helper starts at line 20.
const (
	SampleMainLine       = 10
	SampleMainSecondLine = 11
	SampleHelperLine     = 20
)

// SampleImage returns a small ELF64 executable with DWARF 4 debug info, a line
// program, a symbol table, a build-id note, build metadata sections and one
// executable PT_LOAD segment.
func SampleImage() []byte {
	b := NewELF(ELFClass64)
	b.Segments = []ELFSegment{
		{Type: PTLoad, Flags: PFR | PFX, Offset: 0x1000, Vaddr: SampleTextBase, Filesz: 0x200, Memsz: 0x200, Align: 0x1000},
	}

	text := b.AddSection(ELFSection{Name: ".text", Type: SHTProgBits, Flags: 0x6, Addr: SampleTextBase, Data: make([]byte, 0x20), Align: 16})
	b.AddSection(ELFSection{Name: ".note.gnu.build-id", Type: SHTNote, Data: BuildIDNote(mustHex(SampleBuildID)), Align: 4})
	b.AddSection(ELFSection{Name: SampleMetadataArgs, Type: SHTStrTab, Data: []byte("-H:Name=demo\x00-O2\x00"), Align: 1})
	b.AddSection(ELFSection{Name: SampleMetadataProps, Type: SHTStrTab, Data: []byte("java.version=21\x00"), Align: 1})

	b.AddSection(ELFSection{Name: ".debug_abbrev", Type: SHTProgBits, Data: sampleAbbrevs(), Align: 1})
	b.AddSection(ELFSection{Name: ".debug_info", Type: SHTProgBits, Data: sampleInfo(), Align: 1})
	b.AddSection(ELFSection{Name: ".debug_str", Type: SHTProgBits, Data: []byte("\x00" + SampleUnitName + "\x00"), Align: 1})
	b.AddSection(ELFSection{Name: ".debug_line", Type: SHTProgBits, Data: sampleLines(), Align: 1})

	const stFunc, stObject, stbGlobal = 2, 1, 1
	b.AddSymbols([]ELFSymbol{
		{Name: "main", Value: SampleMainLow, Size: SampleMainHigh - SampleMainLow, Type: stFunc, Bind: stbGlobal, Section: uint16(text)},
		{Name: "helper", Value: SampleHelperLow, Size: SampleHelperHigh - SampleHelperLow, Type: stFunc, Section: uint16(text)},
		{Name: "stub", Value: SampleStubAddr, Size: SampleStubSize, Type: stFunc, Bind: stbGlobal, Section: uint16(text)},
		{Name: "counter", Value: 0x402000, Size: 8, Type: stObject, Bind: stbGlobal},
	})
	return b.Bytes()
}

// DWARF codes used by the sample; testutil cannot import pkg/dwarf.
const (
	tagBaseType     = 0x24
	tagClassType    = 0x02
	tagCompileUnit  = 0x11
	tagMember       = 0x0d
	tagSubprogram   = 0x2e
	atName          = 0x03
	atStmtList      = 0x10
	atLowPC         = 0x11
	atHighPC        = 0x12
	atType          = 0x49
	atByteSize      = 0x0b
	atMemberLoc     = 0x38
	formAddr        = 0x01
	formData1       = 0x0b
	formData4       = 0x06
	formString      = 0x08
	formStrp        = 0x0e
	formRef4        = 0x13
	formSecOffset   = 0x17
	lineAdvancePC   = 0x02
	lineAdvanceLine = 0x03
	lineCopy        = 0x01
)

func sampleAbbrevs() []byte {
	return EncodeAbbrevs(
		Abbrev{Code: 1, Tag: tagCompileUnit, Children: true, Attrs: [][2]uint64{
			{atName, formStrp}, {atStmtList, formSecOffset}, {atLowPC, formAddr}, {atHighPC, formData4}}},
		Abbrev{Code: 2, Tag: tagBaseType, Attrs: [][2]uint64{{atName, formString}, {atByteSize, formData1}}},
		Abbrev{Code: 3, Tag: tagClassType, Children: true, Attrs: [][2]uint64{{atName, formString}}},
		Abbrev{Code: 4, Tag: tagMember, Attrs: [][2]uint64{{atName, formString}, {atType, formRef4}, {atMemberLoc, formData1}}},
		Abbrev{Code: 5, Tag: tagSubprogram, Attrs: [][2]uint64{{atName, formString}, {atLowPC, formAddr}, {atHighPC, formData4}}},
	)
}

func sampleInfo() []byte {
	const header = 11
	e := &Bytes{}
	e.ULEB(1).U32(1).U32(0).U64(SampleMainLow).U32(SampleHelperHigh - SampleMainLow)

	intRef := uint32(header + e.Len())
	e.ULEB(2).CString("int").U8(4)

	e.ULEB(3).CString(SampleClassName)
	e.ULEB(4).CString("count").U32(intRef).U8(8)
	e.ULEB(0)

	e.ULEB(5).CString("main").U64(SampleMainLow).U32(SampleMainHigh - SampleMainLow)
	e.ULEB(5).CString("helper").U64(SampleHelperLow).U32(SampleHelperHigh - SampleHelperLow)
	e.ULEB(0)
	return Unit{}.Encode(e.Bytes())
}

func sampleLines() []byte {
	// Special opcode for address +16, line +1 with line_base -5, line_range 14.
	const special = (1 + 5) + 14*16 + 13
	prog := &Bytes{}
	prog.U8(lineAdvanceLine).SLEB(SampleMainLine - 1)
	prog.Raw(0, 9, 0x02).U64(SampleMainLow)
	prog.U8(lineCopy)
	prog.U8(special)
	prog.U8(lineAdvancePC).ULEB(SampleHelperLow - SampleMainLow - 0x10)
	prog.U8(lineAdvanceLine).SLEB(SampleHelperLine - SampleMainSecondLine)
	prog.U8(lineCopy)
	prog.U8(lineAdvancePC).ULEB(SampleHelperHigh - SampleHelperLow)
	prog.Raw(0, 1, 0x01)

	return LineProgram{
		MinInstLength: 1,
		MaxOps:        1,
		DefaultIsStmt: true,
		LineBase:      -5,
		LineRange:     14,
		OpcodeBase:    13,
		IncludeDirs:   []string{SampleSourceDir},
		Files:         []LineFile{{Name: SampleUnitName, Dir: 1}},
		Program:       prog.Bytes(),
	}.Encode()
}

func mustHex(s string) []byte {
	out, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return out
}
