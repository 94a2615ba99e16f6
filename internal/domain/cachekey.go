package domain

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// CacheWildcard matches any run of characters in a cache key pattern.
const CacheWildcard = "*"

// SprintKey returns the cache key of a single sprint view.
func SprintKey(sprintID string) string {
	return "sprint:" + sprintID
}

// TaskKey returns the cache key of a single task view.
func TaskKey(taskID string) string {
	return "task:" + taskID
}

// ProjectKey returns the cache key of a single project view.
func ProjectKey(projectID string) string {
	return "project:" + projectID
}

// ProjectSprintsPattern matches every cached sprint list of a project.
func ProjectSprintsPattern(projectID string) string {
	return "project:" + projectID + ":sprints" + CacheWildcard
}

// ProjectSprintsKey returns the cache key of one sprint list query.
// query must be a canonical encoding of the filter and page.
func ProjectSprintsKey(projectID, query string) string {
	return "project:" + projectID + ":sprints:" + strconv.FormatUint(xxhash.Sum64String(query), 16)
}
