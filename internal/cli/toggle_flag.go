package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleTypeName        = "bool"
	toggleImpliedValue    = "true"
	toggleInvalidFormat   = "invalid value %q for --%s (use one of: %s)"
	toggleAcceptedListing = "true/false, yes/no, on/off, 1/0"
	argumentTerminator    = "--"
	longFlagPrefix        = "--"
	shortFlagPrefix       = "-"
	flagValueSeparator    = "="
)

var toggleWords = map[string]bool{
	"yes": true,
	"y":   true,
	"on":  true,
	"no":  false,
	"n":   false,
	"off": false,
}

// parseToggle accepts strconv.ParseBool literals plus yes/no and on/off, in any case.
// An empty value switches the toggle on.
func parseToggle(input string) (bool, bool) {
	literal := strings.ToLower(strings.TrimSpace(input))
	if literal == "" {
		return true, true
	}
	if value, known := toggleWords[literal]; known {
		return value, true
	}
	value, parseError := strconv.ParseBool(literal)
	return value, parseError == nil
}

// toggleValue is a pflag.Value for switches that also take an explicit literal.
type toggleValue struct {
	target *bool
	name   string
}

func (toggle *toggleValue) Set(input string) error {
	value, valid := parseToggle(input)
	if !valid {
		return fmt.Errorf(toggleInvalidFormat, input, toggle.name, toggleAcceptedListing)
	}
	*toggle.target = value
	return nil
}

func (toggle *toggleValue) String() string {
	if toggle.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*toggle.target)
}

func (toggle *toggleValue) Type() string {
	return toggleTypeName
}

// registerBooleanFlag registers a switch that accepts "--name", "--name=no" and "--name off",
// with an optional shorthand that accepts "-x" and "-x off".
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	*target = defaultValue
	flag := flagSet.VarPF(&toggleValue{target: target, name: name}, name, shorthand, usage)
	flag.DefValue = strconv.FormatBool(defaultValue)
	flag.NoOptDefVal = toggleImpliedValue
}

// normalizeBooleanFlagArguments joins a switch and a following toggle literal
// ("--hidden off", "-L no") into one argument, so the literal is not read as the path.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	switches := map[string]struct{}{}
	collectBooleanFlagNames(command, switches)

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == argumentTerminator {
			return append(normalized, arguments[index:]...)
		}
		if _, isSwitch := switches[argument]; isSwitch && index+1 < len(arguments) {
			next := arguments[index+1]
			if _, valid := parseToggle(next); valid && next != "" && !strings.HasPrefix(next, shortFlagPrefix) {
				normalized = append(normalized, argument+flagValueSeparator+next)
				index++
				continue
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

// collectBooleanFlagNames records every switch of command and its subcommands in
// argument form ("--hidden", "-L").
func collectBooleanFlagNames(command *cobra.Command, switches map[string]struct{}) {
	record := func(flag *pflag.Flag) {
		if _, isToggle := flag.Value.(*toggleValue); !isToggle {
			return
		}
		switches[longFlagPrefix+flag.Name] = struct{}{}
		if flag.Shorthand != "" {
			switches[shortFlagPrefix+flag.Shorthand] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(record)
	command.Flags().VisitAll(record)
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, switches)
	}
}
