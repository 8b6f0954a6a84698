package models

// CommandSpec describes what a supported slash command writes to the roster
type CommandSpec struct {
	TargetColumnHeader string
}

// CommandConfig maps command names to their roster column
type CommandConfig map[string]CommandSpec

// Lookup returns the CommandSpec for a command name. Unknown commands are never defaulted.
func (c CommandConfig) Lookup(commandName string) (CommandSpec, bool) {
	spec, ok := c[commandName]
	if !ok || spec.TargetColumnHeader == "" {
		return CommandSpec{}, false
	}
	return spec, true
}
