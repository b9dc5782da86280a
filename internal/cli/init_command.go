package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/codeprompt/internal/config"
)

const (
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the default configuration to ./.codeprompt.toml, or to
~/.codeprompt/config.toml with --global. Existing files are kept unless --force is given.`
	initGlobalFlagName = "global"
	initForceFlagName  = "force"
	initWrittenFormat  = "configuration written to %s\n"
)

func createInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(command.OutOrStdout(), initWrittenFormat, path)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, initGlobalFlagName, "g", false, "write the global configuration")
	registerBooleanFlag(initCommand.Flags(), &force, initForceFlagName, "f", false, "overwrite an existing file")
	return initCommand
}
