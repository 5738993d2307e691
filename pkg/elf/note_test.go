package elf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfscope/internal/testutil"
)

func TestBuildID(t *testing.T) {
	b := testutil.NewELF(testutil.ELFClass64)
	b.AddSection(testutil.ELFSection{
		Name: ".note.gnu.build-id", Type: testutil.SHTNote,
		Data: testutil.BuildIDNote([]byte{0xde, 0xad, 0xbe, 0xef, 0x01}),
	})
	f := parse(t, b)

	id, err := f.BuildID()
	require.NoError(t, err)
	assert.Equal(t, "deadbeef01", id)

	identity, err := f.Identity()
	require.NoError(t, err)
	assert.Equal(t, "deadbeef01", identity)
}

func TestIdentity_FallsBackToFingerprint(t *testing.T) {
	b := testutil.NewELF(testutil.ELFClass64)
	b.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{1, 2, 3}})
	f := parse(t, b)

	id, err := f.BuildID()
	require.NoError(t, err)
	assert.Empty(t, id)

	identity, err := f.Identity()
	require.NoError(t, err)
	assert.Equal(t, "xxh3:"+f.Fingerprint(), identity)

	// Same bytes, same fingerprint; different bytes, different fingerprint.
	assert.Equal(t, f.Fingerprint(), parse(t, b).Fingerprint())
	other := testutil.NewELF(testutil.ELFClass64)
	other.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{1, 2, 4}})
	assert.NotEqual(t, f.Fingerprint(), parse(t, other).Fingerprint())
}

func TestMetadata(t *testing.T) {
	b := testutil.NewELF(testutil.ELFClass64)
	b.AddSection(testutil.ELFSection{
		Name: DefaultMetadataPrefix + "arguments", Type: testutil.SHTProgBits,
		Data: []byte("-H:Name=app\x00--no-fallback\x00"),
	})
	b.AddSection(testutil.ELFSection{Name: ".text", Type: testutil.SHTProgBits, Data: []byte{1}})
	b.AddSection(testutil.ELFSection{
		Name: DefaultMetadataPrefix + "java.properties", Type: testutil.SHTProgBits,
		Data: []byte("java.version=21\x00"),
	})
	f := parse(t, b)

	md, err := f.Metadata("")
	require.NoError(t, err)
	require.Len(t, md, 2)
	assert.Equal(t, DefaultMetadataPrefix+"arguments", md[0].Name)
	assert.Equal(t, []string{"-H:Name=app", "--no-fallback"}, md[0].Entries)
	assert.Equal(t, []string{"java.version=21"}, md[1].Entries)

	none, err := f.Metadata(".vendor.")
	require.NoError(t, err)
	assert.Empty(t, none)
}
