package elf

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/dwarfscope/pkg/buffer"
)

const (
	buildIDSection = ".note.gnu.build-id"
	noteGNUBuildID = 3

	// DefaultMetadataPrefix names the sections in which native-image builders
	// record their build arguments and properties as plain string tables.
	DefaultMetadataPrefix = ".debug.svm.imagebuild."
)

// BuildID returns the hex-encoded NT_GNU_BUILD_ID note, or "" when the file
// carries none.
func (f *File) BuildID() (string, error) {
	data, err := f.SectionData(buildIDSection)
	if err != nil || data == nil {
		return "", err
	}

	// Note layout: namesz(4) descsz(4) type(4) name(namesz, 4-aligned) desc(descsz).
	for off := uint64(0); off+12 <= data.Len(); {
		c := buffer.NewCursor(data, off)
		namesz, descsz, typ := c.U32(), c.U32(), c.U32()
		if err := c.Err(); err != nil {
			return "", fmt.Errorf("build-id note: %w", err)
		}
		nameOff := off + 12
		descOff := nameOff + align4(uint64(namesz))
		name, err := data.Bytes(nameOff, uint64(namesz))
		if err != nil {
			return "", fmt.Errorf("build-id note name: %w", err)
		}
		if typ == noteGNUBuildID && strings.TrimRight(string(name), "\x00") == "GNU" {
			desc, err := data.Bytes(descOff, uint64(descsz))
			if err != nil {
				return "", fmt.Errorf("build-id note descriptor: %w", err)
			}
			return hex.EncodeToString(desc), nil
		}
		off = descOff + align4(uint64(descsz))
	}
	return "", nil
}

// Fingerprint returns an xxh3 hash of the whole image. It identifies binaries
// that were linked without a build-id note.
func (f *File) Fingerprint() string {
	data, _ := f.r.Bytes(0, f.r.Len())
	return strconv.FormatUint(xxh3.Hash(data), 16)
}

// Identity returns the build-id when present and the xxh3 fingerprint otherwise.
func (f *File) Identity() (string, error) {
	id, err := f.BuildID()
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	return "xxh3:" + f.Fingerprint(), nil
}

// MetadataSection is the decoded content of one vendor build metadata section.
type MetadataSection struct {
	Name    string
	Entries []string
}

// Metadata dumps every section whose name starts with prefix as a string table.
func (f *File) Metadata(prefix string) ([]MetadataSection, error) {
	if prefix == "" {
		prefix = DefaultMetadataPrefix
	}
	var out []MetadataSection
	for s, err := range f.Sections() {
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(s.Name, prefix) {
			continue
		}
		table, err := f.StringTable(s)
		if err != nil {
			return nil, err
		}
		entries, err := table.Strings()
		if err != nil {
			return nil, err
		}
		out = append(out, MetadataSection{Name: s.Name, Entries: entries})
	}
	return out, nil
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}
