package rarc

import "strings"

// Entry flag bits, stored in the flags byte of every entry record.
const (
	FlagFile        uint8 = 0x01
	FlagDirectory   uint8 = 0x02
	FlagCompressed  uint8 = 0x04
	FlagPreloadMRAM uint8 = 0x10
	FlagPreloadARAM uint8 = 0x20
	FlagLoadFromDVD uint8 = 0x40
	FlagYaz0        uint8 = 0x80
)

// DefaultFileFlags is used for files whose Flags field is zero.
const DefaultFileFlags = FlagFile | FlagPreloadMRAM

// FlagString renders flags as a compact list such as "file|mram|yaz0".
func FlagString(flags uint8) string {
	names := []struct {
		bit  uint8
		name string
	}{
		{FlagFile, "file"},
		{FlagDirectory, "dir"},
		{FlagCompressed, "compressed"},
		{FlagPreloadMRAM, "mram"},
		{FlagPreloadARAM, "aram"},
		{FlagLoadFromDVD, "dvd"},
		{FlagYaz0, "yaz0"},
	}
	var parts []string
	for _, n := range names {
		if flags&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "|")
}
