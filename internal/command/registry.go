package command

var registry = map[string]Command{}

// Register wraps the command in the given middlewares and adds it to the
// registry. Later middlewares run first.
func Register(cmd Command, mws ...Middleware) {
	registry[cmd.Name()] = Apply(cmd, mws...)
}

// Get returns the command with the given name.
func Get(name string) (Command, bool) {
	cmd, ok := registry[name]
	return cmd, ok
}

// All returns all registered commands.
func All() []Command {
	seen := map[string]bool{}
	var list []Command
	for _, cmd := range registry {
		if seen[cmd.Name()] {
			continue
		}
		list = append(list, cmd)
		seen[cmd.Name()] = true
	}
	return list
}
