// Package szs reads and writes SZS files, RARC archives wrapped in Yaz0
// compression.
//
// Unpack accepts both compressed and raw archives:
//
//	a, err := szs.Unpack(data)
//	if err != nil {
//		return err
//	}
//	out, err := szs.Pack(a, szs.WithCompression(yaz0.WithLevel(yaz0.LevelLookahead)))
//
// Compression is the slow direction. A Codec created with WithCache stores
// compressed outputs by content digest and deduplicates concurrent packs of
// identical archives.
package szs
