package commands

import (
	"fmt"

	"git.home.luguber.info/inful/pagefactory/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if err := config.WriteSample(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote configuration to %s\n", root.Config)
	return nil
}
