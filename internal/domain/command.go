package domain

// Intent is the coarse category of a user request.
type Intent string

const (
	IntentCreate Intent = "create"
	IntentUpdate Intent = "update"
	IntentDelete Intent = "delete"
	IntentChat   Intent = "chat"
)

// Command is one of UpdateCommand, CreateCommand, DeleteCommand or ErrorResult.
type Command interface {
	command()
}

// UpdateCommand sets one parameter of one device.
type UpdateCommand struct {
	Device  string `json:"device"`
	Command string `json:"command"`
	Value   string `json:"value"`
}

// Complete reports whether both the parameter name and the value are present.
func (c UpdateCommand) Complete() bool {
	return c.Command != "" && c.Value != ""
}

// CreateCommand registers a new device modelled on a similar catalog entry.
type CreateCommand struct {
	Name            string
	SimilarDeviceID string
	Params          map[string]string
}

// DeleteCommand removes an owned device.
type DeleteCommand struct {
	Device string
	ID     string
}

// ErrorResult carries a clarification request from the model that must be shown to the user as is.
type ErrorResult struct {
	Message string
}

func (UpdateCommand) command() {}
func (CreateCommand) command() {}
func (DeleteCommand) command() {}
func (ErrorResult) command()   {}
