package inkpad

// Command is a parsed CLI subcommand. [Parse] produces one; [Main]
// dispatches on its concrete type.
type Command interface {
	Name() string
}

// MigrateCommand applies the database schema and exits.
type MigrateCommand struct {
}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// RunCommand starts the HTTP server.
type RunCommand struct {
}

func (c *RunCommand) Name() string {
	return "run"
}
