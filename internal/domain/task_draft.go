package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TaskDraft represents a task to be created from file input.
// Fields are ordered to minimize memory padding.
type TaskDraft struct {
	Title       string   `yaml:"title"`
	Status      string   `yaml:"status"`
	Priority    Priority `yaml:"priority"`
	Assignee    string   `yaml:"assignee"`
	SprintRef   string   `yaml:"sprint"` // Sprint ID or exact sprint name
	Description string   `yaml:"-"`
}

// frontmatterKeys are the keys that mark the start of a new task block.
var frontmatterKeys = []string{"title:", "status:", "priority:", "assignee:", "sprint:"}

// ParseTaskDrafts parses a markdown file containing one or more task definitions.
// Tasks are separated by YAML frontmatter blocks delimited by "---".
//
// Format:
//
//	---
//	title: Task Title
//	status: Doing
//	priority: high
//	sprint: Sprint 1
//	---
//	Task description here.
//
//	---
//	title: Second Task
//	---
//	Second task description.
func ParseTaskDrafts(content string) ([]TaskDraft, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyFile
	}

	blocks := splitTaskBlocks(content)
	if len(blocks) == 0 {
		return nil, ErrNoTasksInFile
	}

	drafts := make([]TaskDraft, 0, len(blocks))
	for i, block := range blocks {
		draft, err := parseTaskBlock(block)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		drafts = append(drafts, draft)
	}

	return drafts, nil
}

// splitTaskBlocks splits content into separate task blocks.
// Each returned block holds the frontmatter lines, the closing "---" and the description.
func splitTaskBlocks(content string) []string {
	var blocks []string
	lines := strings.Split(content, "\n")

	inBlock := false
	var current []string

	for i, line := range lines {
		if strings.TrimRight(line, " \r") != "---" {
			if inBlock {
				current = append(current, line)
			}
			continue
		}
		switch {
		case !inBlock:
			inBlock = true
			current = []string{}
		case !hasDelimiter(current):
			// Closing "---" of the frontmatter.
			current = append(current, "---")
		case i+1 < len(lines) && isFrontmatterKey(lines[i+1]):
			blocks = append(blocks, strings.Join(current, "\n"))
			current = []string{}
		default:
			// Horizontal rule inside the description.
			current = append(current, line)
		}
	}

	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

func hasDelimiter(lines []string) bool {
	for _, l := range lines {
		if l == "---" {
			return true
		}
	}
	return false
}

// isFrontmatterKey checks if a line looks like a frontmatter key.
func isFrontmatterKey(line string) bool {
	for _, key := range frontmatterKeys {
		if strings.HasPrefix(line, key) {
			return true
		}
	}
	return false
}

// parseTaskBlock parses a single task block.
func parseTaskBlock(block string) (TaskDraft, error) {
	header, body, _ := strings.Cut(block, "\n---")
	if strings.HasPrefix(block, "---") {
		header, body = "", strings.TrimPrefix(block, "---")
	}

	var draft TaskDraft
	if err := yaml.Unmarshal([]byte(header), &draft); err != nil {
		return TaskDraft{}, fmt.Errorf("%w: frontmatter: %v", ErrInvalidInput, err)
	}
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return TaskDraft{}, ErrEmptyTitle
	}
	if draft.Priority != "" && !draft.Priority.IsValid() {
		return TaskDraft{}, &ValidationError{Field: "priority", Reason: "must be one of [low medium high urgent]"}
	}
	draft.Description = strings.TrimSpace(body)
	return draft, nil
}
