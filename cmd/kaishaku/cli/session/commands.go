package session

import (
	"github.com/kaishaku/cli/cmd/kaishaku/cli/policy"
)

// Command is one decoded kaishaku invocation. The set of commands is closed;
// Controller.Execute dispatches on the concrete type.
type Command interface {
	// Name is the CLI verb, used for logging.
	Name() string
	command()
}

// Checkout starts a new session detached at Commit (HEAD when empty).
type Checkout struct {
	Session string
	Commit  string
}

// Switch re-enters an existing session.
type Switch struct {
	Session string
}

// Branch turns the active session's work into a real branch.
type Branch struct {
	Branch string
}

// Save merges the active session's work into its original branch by way of
// a temporary branch.
type Save struct {
	Branch string
}

// Exit leaves the active session and returns to its original branch.
type Exit struct {
	Flag policy.Flag
}

// Abort throws a session away. An empty Session means the active one.
type Abort struct {
	Session string
}

// Recover re-activates a session, recreating its original branch if needed.
type Recover struct {
	Session string
}

// Rename renames an inactive session.
type Rename struct {
	Old string
	New string
}

// Clean removes one inactive session, or every inactive session when
// Session is empty.
type Clean struct {
	Session string
	DryRun  bool
}

// List enumerates the registry.
type List struct{}

// Status reports the active session.
type Status struct{}

// ConfigGet reads one configuration key.
type ConfigGet struct {
	Key string
}

// ConfigSet writes one configuration key.
type ConfigSet struct {
	Key   string
	Value string
}

func (Checkout) Name() string  { return "checkout" }
func (Switch) Name() string    { return "switch" }
func (Branch) Name() string    { return "branch" }
func (Save) Name() string      { return "save" }
func (Exit) Name() string      { return "exit" }
func (Abort) Name() string     { return "abort" }
func (Recover) Name() string   { return "recover" }
func (Rename) Name() string    { return "rename" }
func (Clean) Name() string     { return "clean" }
func (List) Name() string      { return "list" }
func (Status) Name() string    { return "status" }
func (ConfigGet) Name() string { return "config get" }
func (ConfigSet) Name() string { return "config set" }

func (Checkout) command()  {}
func (Switch) command()    {}
func (Branch) command()    {}
func (Save) command()      {}
func (Exit) command()      {}
func (Abort) command()     {}
func (Recover) command()   {}
func (Rename) command()    {}
func (Clean) command()     {}
func (List) command()      {}
func (Status) command()    {}
func (ConfigGet) command() {}
func (ConfigSet) command() {}
