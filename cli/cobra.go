package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kvesta/portvuln/pkg/portscan"
	"github.com/spf13/cobra"
)

func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}

	if cmd.HasSubCommands() {
		return errors.New(fmt.Sprintf("\n" + strings.TrimRight(cmd.UsageString(), "\n")))
	}

	return errors.New(fmt.Sprintf("\"%s\" accepts no argument(s).\nSee '%s --help'.\n\nUsage:  %s\n\n%s",
		cmd.CommandPath(),
		cmd.CommandPath(),
		cmd.UseLine(),
		cmd.Short))
}

// checkOutput rejects an unknown format, and json or csv without a file.
func checkOutput(format, outfile string) error {
	switch format {
	case "console":
		return nil
	case "json", "csv":
		if outfile == "" {
			return fmt.Errorf("--output is required when using --format %s", format)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q, use console, json or csv", format)
	}
}

// checkPorts parses the -p flag, falling back to the configured ports.
func checkPorts(flag string, configured []int) ([]int, error) {
	if flag == "" {
		return configured, nil
	}

	ports, err := portscan.ParsePorts(flag)
	if err != nil {
		return nil, fmt.Errorf("%w, use comma separated numbers (e.g., 22,80,443)", err)
	}
	return ports, nil
}
