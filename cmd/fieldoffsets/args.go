package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// normalizeArgs rewrites single-dash long flags (-type=Data, -output x.go),
// the form go:generate lines use, to the double-dash form pflag expects.
// Shorthands and anything after "--" are left alone.
func normalizeArgs(root *cobra.Command, args []string) []string {
	out := make([]string, len(args))
	copy(out, args)

	for i, arg := range out {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		if len(name) > 1 && isLongFlag(root, name) {
			out[i] = "-" + arg
		}
	}
	return out
}

func isLongFlag(root *cobra.Command, name string) bool {
	sets := []*pflag.FlagSet{root.PersistentFlags(), root.Flags()}
	for _, sub := range root.Commands() {
		sets = append(sets, sub.Flags())
	}
	for _, fs := range sets {
		if fs.Lookup(name) != nil {
			return true
		}
	}
	return false
}
