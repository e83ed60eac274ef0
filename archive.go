package cube

import (
	"fmt"
	"os"

	"github.com/meigma/cube/internal/fsutil"
	"github.com/meigma/cube/szs"
)

// ReadArchive reads an .szs, .arc or .rarc file. Compressed and raw archives
// are both accepted.
func ReadArchive(path string, opts ...szs.Option) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := szs.Unpack(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	return a, nil
}

// WriteArchive packs a with Yaz0 and atomically replaces path with the
// result.
func WriteArchive(path string, a *Archive, opts ...szs.Option) error {
	data, err := szs.Pack(a, opts...)
	if err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	return fsutil.WriteFile(path, data)
}

// WriteRawArchive writes a without compression.
func WriteRawArchive(path string, a *Archive) error {
	data, err := a.MarshalBinary()
	if err != nil {
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	return fsutil.WriteFile(path, data)
}
