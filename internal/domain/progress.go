package domain

// ComputeProgress returns round-half-up(100 * done / total) as an integer.
// An empty sprint has 0 progress.
func ComputeProgress(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return (200*done + total) / (2 * total)
}

// CountDone counts the tasks whose status is the project's done status.
func CountDone(project *Project, tasks []*Task) int {
	n := 0
	for _, t := range tasks {
		if project.IsDone(t.Status) {
			n++
		}
	}
	return n
}
