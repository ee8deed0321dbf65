package model

// Issue is a draft of a Backlog issue. Project, issue type and priority are
// fixed by configuration and attached by the Backlog client.
type Issue struct {
	Summary     string
	Description string
}
