package verify

import (
	"fmt"

	"otapush/internal/cli"
	"otapush/internal/fs"
	"otapush/internal/storage"
)

type Command struct{}

func (c *Command) Name() string      { return "verify" }
func (c *Command) Short() string     { return "V" }
func (c *Command) Aliases() []string { return []string{"check"} }
func (c *Command) Usage() string     { return "verify" }
func (c *Command) Brief() string     { return "Verify local blob store integrity" }
func (c *Command) Help() string {
	return `Scan every blob in the local store and report missing or damaged ones.
`
}

func (c *Command) Run(ctx *cli.Context) error {
	local, err := storage.NewLocal(fs.NewOSFS(), ctx.Cfg.BlobDir)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	if err := local.CleanupTemp(); err != nil {
		return fmt.Errorf("cleanup temp blobs: %w", err)
	}

	var ok, missing, damaged int
	for check := range local.Verify(ctx.Cfg.Workers) {
		switch check.Status {
		case storage.OK:
			ok++
		case storage.Missing:
			missing++
			fmt.Printf("missing: %s\n", check.Name)
		case storage.Damaged:
			damaged++
			fmt.Printf("damaged: %s\n", check.Name)
		}
	}

	fmt.Printf("%d ok, %d missing, %d damaged\n", ok, missing, damaged)
	if missing+damaged > 0 {
		return fmt.Errorf("blob store is unhealthy")
	}
	return nil
}

func init() {
	cli.RegisterCommand(cli.ApplyMiddlewares(&Command{}, cli.WithElapsed()))
}
