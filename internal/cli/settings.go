package cli

import "github.com/spf13/pflag"

// resolveFlag returns the flag value when the user set the flag, the configured
// value when one exists, and the flag default otherwise.
func resolveFlag[T any](flagSet *pflag.FlagSet, name string, flagValue T, configured *T) T {
	if flagSet.Changed(name) || configured == nil {
		return flagValue
	}
	return *configured
}

func stringSetting(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func listSetting(values []string) *[]string {
	if len(values) == 0 {
		return nil
	}
	return &values
}
