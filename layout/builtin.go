package layout

import (
	"fmt"
	"sort"
)

var builtin = map[string]string{
	"small": `
		##################
		#0#.  .  # .     #
		#2#####    #####1#
		#     . #  .  .#3#
		##################
	`,
	"corridor": `
		##################
		#0#.  .  # .     #
		# #####    ##### #
		#     . #  .  .#1#
		##################
	`,
	"open": `
		################################
		#0   .  .   #    .   .   .    1#
		#2 #### . # # . #### #### #   3#
		#  .  #   #   #  .  . #   #  . #
		# .  ## . ### ### # .## .  . . #
		#  .  .  .   #    .  #   .  #  #
		################################
	`,
}

// Get parses a built-in layout by name.
func Get(name string, numBots int) (*Layout, error) {
	text, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("layout: unknown built-in %q", name)
	}
	return Parse(text, numBots)
}

// Names lists the built-in layouts.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
