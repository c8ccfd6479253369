package access

// Command is a mutation a viewer performs on an event page or an
// organization page. The set is closed.
type Command interface {
	isCommand()
	Name() string
}

type AddComment struct {
	EventID int64
	Body    string
}

type EditComment struct {
	EventID   int64
	CommentID int64
	Body      string
}

type DeleteComment struct {
	EventID   int64
	CommentID int64
}

type RateEvent struct {
	EventID int64
	Value   int
}

type JoinOrganization struct {
	OrganizationID int64
}

type LeaveOrganization struct {
	OrganizationID int64
}

func (AddComment) isCommand()        {}
func (EditComment) isCommand()       {}
func (DeleteComment) isCommand()     {}
func (RateEvent) isCommand()         {}
func (JoinOrganization) isCommand()  {}
func (LeaveOrganization) isCommand() {}

func (AddComment) Name() string        { return "add_comment" }
func (EditComment) Name() string       { return "edit_comment" }
func (DeleteComment) Name() string     { return "delete_comment" }
func (RateEvent) Name() string         { return "rate_event" }
func (JoinOrganization) Name() string  { return "join_organization" }
func (LeaveOrganization) Name() string { return "leave_organization" }
