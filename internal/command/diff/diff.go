package diff

import (
	"fmt"
	"os"

	"otapush/internal/archive"
	"otapush/internal/cli"
	"otapush/internal/manifest"
)

type Command struct{}

func (c *Command) Name() string      { return "diff" }
func (c *Command) Short() string     { return "d" }
func (c *Command) Aliases() []string { return nil }
func (c *Command) Usage() string     { return "diff <old-manifest.json> <new-bundle.zip> <out-diff.zip>" }
func (c *Command) Brief() string     { return "Build a diff archive against an old release manifest" }
func (c *Command) Help() string {
	return `Build the minimal update archive from an old release to a new bundle.

Takes the old release's persisted manifest, the new release's full zip, and
an output path. The diff archive holds only changed and added entries plus
the change manifest clients use to apply deletions.
`
}

func (c *Command) Run(ctx *cli.Context) error {
	if len(ctx.Args) != 3 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	oldManifestPath, newArchivePath, outPath := ctx.Args[0], ctx.Args[1], ctx.Args[2]

	data, err := os.ReadFile(oldManifestPath)
	if err != nil {
		return fmt.Errorf("read old manifest: %w", err)
	}
	oldM, err := manifest.Deserialize(data)
	if err != nil {
		return fmt.Errorf("old manifest %q: %w", oldManifestPath, err)
	}

	newM, err := manifest.FromArchiveFile(newArchivePath)
	if err != nil {
		return err
	}

	if err := archive.WriteDiff(oldM, newM, newArchivePath, outPath); err != nil {
		return err
	}

	fi, err := os.Stat(outPath)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, fi.Size())
	return nil
}

func init() {
	cli.RegisterCommand(&Command{})
}
