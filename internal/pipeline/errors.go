package pipeline

import "errors"

var (
	// ErrProjectNotFound is returned when the requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrRunNotFound is returned when resuming a run id that does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrNoMediaAssets is returned when a project has nothing to process.
	ErrNoMediaAssets = errors.New("project has no media assets")

	// ErrMediaMissing is returned when an asset's file is absent or unreadable
	// on disk.
	ErrMediaMissing = errors.New("media file missing or unreadable")

	// ErrAssetMissing is returned when a narration source file is absent.
	ErrAssetMissing = errors.New("narration asset missing")

	// ErrNoScenes is returned by assembly when segmentation produced nothing.
	ErrNoScenes = errors.New("no scenes to assemble")
)
