package domain

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed help_workflow.md
var workflowTmpl string

// HelpData holds data for rendering the workflow help.
type HelpData struct {
	Statuses   []string
	DoneStatus string
	Events     []string
}

// DefaultHelpData describes a project with the default vocabulary.
func DefaultHelpData() HelpData {
	return HelpData{
		Statuses:   DefaultStatuses,
		DoneStatus: DefaultStatuses[len(DefaultStatuses)-1],
		Events: []string{
			EventSprintCreated,
			EventSprintUpdated,
			EventSprintDeleted,
			EventSprintTaskAdded,
			EventSprintTaskRemoved,
			EventSprintProgressUpdated,
		},
	}
}

// RenderWorkflowHelp renders the workflow guide.
func RenderWorkflowHelp(data HelpData) (string, error) {
	tmpl, err := template.New("help").Parse(workflowTmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
