package cli

import (
	"fmt"
	"sort"
)

var registry = map[string]Command{}

// RegisterCommand makes a command reachable by its name, aliases and
// short form. Called from the command packages' init functions.
func RegisterCommand(cmd Command) {
	names := append([]string{cmd.Name()}, cmd.Aliases()...)
	if short := cmd.Short(); short != "" {
		names = append(names, short)
	}
	for _, n := range names {
		if _, taken := registry[n]; taken {
			panic(fmt.Sprintf("cli: command name %q registered twice", n))
		}
		registry[n] = cmd
	}
}

func GetCommand(name string) (Command, bool) {
	cmd, ok := registry[name]
	return cmd, ok
}

// AllCommands returns every registered command once, sorted by name,
// so the usage listing is stable across runs.
func AllCommands() []Command {
	byName := map[string]Command{}
	for _, cmd := range registry {
		byName[cmd.Name()] = cmd
	}
	list := make([]Command, 0, len(byName))
	for _, cmd := range byName {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}
