package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/meigma/cube/rarc"
	"github.com/meigma/cube/szs"
)

const listLong = `
List the entries of an .szs, .arc or .rarc archive as a table of path, file
ID, flags and stored size. Directories are listed with an ID of "-".

Names that are not valid Shift-JIS are shown quoted.
`

type cmdList struct {
	Args struct {
		File string `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (cmd *cmdList) Execute([]string) error {
	if cmd.out == nil {
		cmd.out = os.Stdout
	}
	return cmd.run(baseCfg.Log.newLogger())
}

func (cmd *cmdList) run(log *slog.Logger) error {
	data, err := os.ReadFile(cmd.Args.File)
	if err != nil {
		return err
	}
	a, err := szs.New(szs.WithLogger(log)).Unpack(data)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Args.File, err)
	}
	return cmd.render(a)
}

func (cmd *cmdList) render(a *rarc.Archive) error {
	var table = tablewriter.NewWriter(cmd.out)
	table.Header("Path", "ID", "Flags", "Size")

	err := a.Walk(func(p string, n rarc.Node) error {
		switch n := n.(type) {
		case *rarc.Directory:
			return table.Append(displayPath(p)+"/", "-", rarc.FlagString(n.Flags), "")
		case *rarc.File:
			return table.Append(
				displayPath(p),
				strconv.Itoa(int(n.ID)),
				rarc.FlagString(n.Flags),
				humanize.IBytes(uint64(len(n.Data))),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	stats := a.Stats()
	_, err = fmt.Fprintf(cmd.out, "%d directories, %d files (%d compressed), %s\n",
		stats.Dirs, stats.Files, stats.Compressed, humanize.IBytes(stats.DataBytes))
	return err
}
