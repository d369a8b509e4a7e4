package manifest

import (
	"errors"
	"fmt"

	"otapush/internal/cli"
	"otapush/internal/manifest"
	"otapush/internal/util"
)

type Command struct{}

func (c *Command) Name() string      { return "manifest" }
func (c *Command) Short() string     { return "m" }
func (c *Command) Aliases() []string { return []string{"hash"} }
func (c *Command) Usage() string     { return "manifest <bundle.zip | directory>" }
func (c *Command) Brief() string     { return "Print a bundle's manifest and package hash" }
func (c *Command) Help() string {
	return `Compute the content manifest of a release bundle.

The input may be a zip archive or a directory; anything that is not a
readable zip is treated as a directory. Prints one "path: digest" line per
entry and the package hash identifying the release.
`
}

func (c *Command) Run(ctx *cli.Context) error {
	if len(ctx.Args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	input := ctx.Args[0]

	m, err := manifest.FromArchiveFile(input)
	if errors.Is(err, manifest.ErrNotAnArchive) {
		m, err = manifest.FromDirectory(input, input)
	}
	if err != nil {
		return err
	}

	for _, p := range util.SortedKeys(m) {
		fmt.Printf("%s: %s\n", p, m[p])
	}
	fmt.Printf("package hash: %s\n", m.PackageHash())
	return nil
}

func init() {
	cli.RegisterCommand(&Command{})
}
