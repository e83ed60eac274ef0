// Package cube reads and writes GameCube asset containers.
//
// The formats live in subpackages:
//   - [yaz0]: the Yaz0 LZ77 compression codec
//   - [rarc]: RARC archives as an editable in-memory tree
//   - [szs]: Yaz0-compressed RARC archives
//   - [bti]: BTI texture decoding
//
// This package re-exports the common errors and types and adds helpers for
// archives stored on disk.
//
// # Quick Start
//
// Read an archive, change a file and write it back compressed:
//
//	a, err := cube.ReadArchive("stage.szs")
//	if err != nil {
//	    return err
//	}
//	if _, err := a.Root.AddFile("patch.bin", data); err != nil {
//	    return err
//	}
//	err = cube.WriteArchive("stage.szs", a)
//
// # Caching
//
// Compression is the slow direction. Pass a cache to skip it for archives
// that were packed before:
//
//	dc, err := disk.New("/var/cache/cube")
//	if err != nil {
//	    return err
//	}
//	err = cube.WriteArchive("stage.szs", a, szs.WithCache(dc))
package cube
