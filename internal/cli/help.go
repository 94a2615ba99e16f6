package cli

import (
	"fmt"
	"io"

	"github.com/runoshun/sprintcrew/internal/domain"
)

func showWorkflowHelp(w io.Writer, data domain.HelpData) error {
	help, err := domain.RenderWorkflowHelp(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, help)
	return err
}

func writeWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		_, _ = fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}
