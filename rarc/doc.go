// Package rarc reads and writes RARC archives, the directory-tree container
// used by GameCube and Wii titles (usually stored Yaz0-compressed as .szs).
//
// An archive is parsed into an owned tree of [Directory] and [File] values
// rooted at [Archive.Root]. The tree can be inspected, mutated in place,
// served as an [io/fs.FS], extracted to disk, or serialized back to bytes.
//
// Parsing records the conventions of the input (dot-entry placement, node
// ordering, file ID numbering, string table bytes) so that an unmodified
// archive serializes back to identical bytes:
//
//	a, err := rarc.Parse(data)
//	if err != nil {
//		return err
//	}
//	out, err := a.MarshalBinary() // bytes.Equal(out, data) for well-formed input
//
// Names are stored as their raw on-disk bytes, which are normally Shift-JIS.
// Use [DecodeName] and [EncodeName] to convert to and from UTF-8.
package rarc
