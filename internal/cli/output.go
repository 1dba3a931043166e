package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case StatusResult:
		o.printStatusResult(v)
	case UserList:
		o.printUserList(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// StatusResult response type (matches the hub's /api/v1/status)
type StatusResult struct {
	Status      string      `json:"status"`
	Uptime      string      `json:"uptime"`
	Connections int         `json:"connections"`
	Identities  int         `json:"identities"`
	Online      int         `json:"online"`
	TotalUsers  int         `json:"totalUsers"`
	Truncated   bool        `json:"truncated"`
	Users       []UserEntry `json:"users"`
}

// UserEntry is one presence roster entry
type UserEntry struct {
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	FirstJoined time.Time `json:"firstJoined"`
}

// UserList wraps the roster portion of the status response
type UserList struct {
	TotalUsers int         `json:"totalUsers"`
	Truncated  bool        `json:"truncated"`
	Users      []UserEntry `json:"users"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}

func (o *Output) printStatusResult(s StatusResult) {
	fmt.Printf("Status: %s\n", s.Status)
	fmt.Printf("Uptime: %s\n", s.Uptime)
	fmt.Printf("Connections: %d\n", s.Connections)
	fmt.Printf("Identities: %d\n", s.Identities)
	fmt.Printf("Online: %d\n", s.Online)
	o.printUserList(UserList{TotalUsers: s.TotalUsers, Truncated: s.Truncated, Users: s.Users})
}

func (o *Output) printUserList(l UserList) {
	fmt.Printf("Users (%d):\n", l.TotalUsers)
	for _, u := range l.Users {
		fmt.Printf("  - %s (%s) - %s @ %s, joined %s\n",
			u.UserName, u.UserID, u.Status, u.Location,
			u.FirstJoined.Format(time.RFC3339))
	}
	if l.Truncated {
		fmt.Println("  ... (truncated)")
	}
}
