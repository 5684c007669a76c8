package domain

// CommandKind names a structural edit.
type CommandKind string

const (
	KindInsertBefore CommandKind = "insert_before"
	KindInsertAfter  CommandKind = "insert_after"
	KindInsertChild  CommandKind = "insert_child"
	KindRename       CommandKind = "rename"
	KindRemove       CommandKind = "remove"
	KindAssignMaster CommandKind = "assign_master"
)

// CommandKinds lists every kind in a stable order.
var CommandKinds = []CommandKind{
	KindInsertBefore,
	KindInsertAfter,
	KindInsertChild,
	KindRename,
	KindRemove,
	KindAssignMaster,
}

// Command is a structural edit addressed by path.
// The set of commands is closed: only the types in this file implement it.
type Command interface {
	Kind() CommandKind
	Target() Path
	command()
}

// InsertBefore inserts a fresh chapter at Path, shifting later siblings right.
type InsertBefore struct {
	Path Path
}

// InsertAfter inserts a fresh chapter right after Path.
type InsertAfter struct {
	Path Path
}

// InsertChild wraps the children of the chapter at Path under a fresh chapter.
type InsertChild struct {
	Path Path
}

// Rename replaces the label of the chapter at Path. An empty Name clears it.
type Rename struct {
	Path Path
	Name string
}

// Remove deletes the chapter at Path together with its subtree.
type Remove struct {
	Path Path
}

// AssignMaster appends a master layout reference to the chapter at Path.
type AssignMaster struct {
	Path     Path
	MasterID string
}

func (c InsertBefore) Kind() CommandKind { return KindInsertBefore }
func (c InsertAfter) Kind() CommandKind  { return KindInsertAfter }
func (c InsertChild) Kind() CommandKind  { return KindInsertChild }
func (c Rename) Kind() CommandKind       { return KindRename }
func (c Remove) Kind() CommandKind       { return KindRemove }
func (c AssignMaster) Kind() CommandKind { return KindAssignMaster }

func (c InsertBefore) Target() Path { return c.Path }
func (c InsertAfter) Target() Path  { return c.Path }
func (c InsertChild) Target() Path  { return c.Path }
func (c Rename) Target() Path       { return c.Path }
func (c Remove) Target() Path       { return c.Path }
func (c AssignMaster) Target() Path { return c.Path }

func (InsertBefore) command() {}
func (InsertAfter) command()  {}
func (InsertChild) command()  {}
func (Rename) command()       {}
func (Remove) command()       {}
func (AssignMaster) command() {}
