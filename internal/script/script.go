// Package script holds the canned command/response table served instead of
// real command execution.
package script

import "strings"

// Response is the scripted reply for one command: stdout text, stderr text
// and an exit status. The zero value of Stderr/Status means "no stderr,
// exit 0".
type Response struct {
	Stdout string
	Stderr string
	Status int
}

// Line is one stdout or stderr line of an interleaved response. OK is false
// for padding entries that carry no output at their index.
type Line struct {
	Text string
	OK   bool
}

// Lines splits stdout and stderr into parallel line sequences of equal
// length, padding the shorter one with absent markers so both can be sent
// interleaved by index without reordering.
func (r Response) Lines() (stdout, stderr []Line) {
	return equalize(splitLines(r.Stdout), splitLines(r.Stderr))
}

// splitLines cuts text into lines with their trailing newline attached.
// Text without a final newline still yields a final line; empty text
// yields no lines.
func splitLines(text string) []Line {
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	lines := make([]Line, len(parts))
	for i, part := range parts {
		lines[i] = Line{Text: part, OK: true}
	}
	return lines
}

func equalize(a, b []Line) ([]Line, []Line) {
	for len(a) < len(b) {
		a = append(a, Line{})
	}
	for len(b) < len(a) {
		b = append(b, Line{})
	}
	return a, b
}

// Table maps exact command strings to responses. No pattern matching is
// performed beyond the caller's sudo-prefix strip.
type Table struct {
	responses map[string]Response
}

func NewTable(responses map[string]Response) *Table {
	table := make(map[string]Response, len(responses))
	for command, response := range responses {
		table[command] = response
	}
	return &Table{responses: table}
}

// Lookup returns the response for an exact command match.
func (t *Table) Lookup(command string) (Response, bool) {
	response, ok := t.responses[command]
	return response, ok
}

// Commands returns the configured command strings.
func (t *Table) Commands() []string {
	commands := make([]string, 0, len(t.responses))
	for command := range t.responses {
		commands = append(commands, command)
	}
	return commands
}
