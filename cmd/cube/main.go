// Command cube extracts, lists and packs GameCube archives.
//
//	cube extract stage.szs
//	cube list stage.szs
//	cube pack stage/ -o stage.szs
//	cube yaz0 decompress in.szs out.arc
//	cube bti texture.bti texture.png
package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
)

var baseCfg = new(struct {
	Log logConfig `group:"Logging" namespace:"log" env-namespace:"CUBE_LOG"`
})

func main() {
	parser := newParser()
	if _, err := parser.Parse(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func newParser() *flags.Parser {
	parser := flags.NewParser(baseCfg, flags.Default)
	parser.LongDescription = `cube reads and writes GameCube asset containers: Yaz0
compressed data, RARC archives and SZS files (Yaz0-compressed RARC), and
decodes BTI textures.

See --help pages of each sub-command for documentation.`

	mustAddCmd(parser.Command, "extract", "Extract archives", extractLong, &cmdExtract{})
	mustAddCmd(parser.Command, "pack", "Pack a directory into an archive", packLong, &cmdPack{})
	mustAddCmd(parser.Command, "list", "List the entries of an archive", listLong, &cmdList{})
	mustAddCmd(parser.Command, "bti", "Convert a BTI texture to PNG", btiLong, &cmdBTI{})

	yaz0Cmd := mustAddCmd(parser.Command, "yaz0", "Compress or decompress raw Yaz0 data", "", &struct{}{})
	mustAddCmd(yaz0Cmd, "compress", "Compress a file with Yaz0", "", &cmdYaz0Compress{})
	mustAddCmd(yaz0Cmd, "decompress", "Decompress a Yaz0 file", "", &cmdYaz0Decompress{})
	return parser
}

func mustAddCmd(cmd *flags.Command, name, short, long string, cfg any) *flags.Command {
	sub, err := cmd.AddCommand(name, short, long, cfg)
	if err != nil {
		panic("failed to add command " + name + ": " + err.Error())
	}
	return sub
}
