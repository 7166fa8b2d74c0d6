package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Action names an operator command understood by the PC.
type Action string

const (
	// ActionLock locks the PC's workstation session.
	ActionLock Action = "LOCK"
)

// actionLabels maps every supported action to its human label.
// Add an entry here to support a new command.
var actionLabels = map[Action]string{
	ActionLock: "Lock",
}

// Label returns the human label ("Lock") used in status text.
func (a Action) Label() string {
	if label, ok := actionLabels[a]; ok {
		return label
	}
	return string(a)
}

// ParseAction maps an operator intent ("lock", "LOCK") to an Action.
func ParseAction(name string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := actionLabels[a]
	return a, ok
}

// Actions returns every supported action, sorted.
func Actions() []Action {
	out := make([]Action, 0, len(actionLabels))
	for a := range actionLabels {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Command is an outbound operator command.
type Command struct {
	Action Action
}

// Lock is the lock command.
var Lock = Command{Action: ActionLock}

// SentStatus returns the status text published after the command is sent.
func (c Command) SentStatus() string {
	return c.Action.Label() + " command sent"
}

type commandFrame struct {
	Type    string         `json:"type"`
	Payload commandPayload `json:"payload"`
}

type commandPayload struct {
	Action Action `json:"action"`
}

// Encode serializes c as a COMMAND frame.
func Encode(c Command) []byte {
	data, err := json.Marshal(commandFrame{
		Type:    TypeCommand,
		Payload: commandPayload{Action: c.Action},
	})
	if err != nil {
		// A struct of two strings always marshals.
		panic(fmt.Sprintf("protocol: encode command: %v", err))
	}
	return data
}

// Handshake is the legacy literal some PC builds expect right after the
// connection opens, identifying this side as the phone client.
const Handshake = "PHONE_CLIENT"
