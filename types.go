package cube

import (
	"github.com/meigma/cube/internal/format"
	"github.com/meigma/cube/rarc"
)

// --- Re-exports from rarc ---

// Archive is an in-memory RARC archive.
type Archive = rarc.Archive

// Directory is a directory node of an Archive.
type Directory = rarc.Directory

// File is a file entry of an Archive.
type File = rarc.File

// Node is either a *File or a *Directory.
type Node = rarc.Node

// Layout holds the ordering conventions used when serializing.
type Layout = rarc.Layout

// NewArchive creates an empty archive whose root directory has the given
// raw name.
var NewArchive = rarc.NewArchive

// --- Progress reporting ---

// ProgressEvent reports progress of building or extracting an archive.
type ProgressEvent = format.ProgressEvent

// ProgressStage identifies the phase a ProgressEvent belongs to.
type ProgressStage = format.ProgressStage

// ProgressFunc receives progress events.
type ProgressFunc = format.ProgressFunc

// Progress stages.
const (
	StageEnumerating = format.StageEnumerating
	StageCompressing = format.StageCompressing
	StageExtracting  = format.StageExtracting
)
