package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/usecase"
)

// Projects

type createProjectReq struct {
	Name       string                 `json:"name"`
	DoneStatus string                 `json:"doneStatus"`
	Statuses   []string               `json:"statuses"`
	Members    []domain.ProjectMember `json:"members"`
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.c.CreateProjectUseCase().Execute(c.Request.Context(), usecase.CreateProjectInput{
		Name:       req.Name,
		DoneStatus: req.DoneStatus,
		Statuses:   req.Statuses,
		Members:    req.Members,
		Actor:      actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, out.Project)
}

func (s *Server) listProjects(c *gin.Context) {
	out, err := s.c.ListProjectsUseCase().Execute(c.Request.Context(), usecase.ListProjectsInput{Actor: actor(c)})
	if err != nil {
		s.fail(c, err)
		return
	}
	okList(c, out.Projects, nil)
}

func (s *Server) showProject(c *gin.Context) {
	out, err := s.c.ShowProjectUseCase().Execute(c.Request.Context(), usecase.ShowProjectInput{
		ProjectID: c.Param("projectId"),
		Actor:     actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, out.Project)
}

func (s *Server) deleteProject(c *gin.Context) {
	out, err := s.c.DeleteProjectUseCase().Execute(c.Request.Context(), usecase.DeleteProjectInput{
		ProjectID: c.Param("projectId"),
		Actor:     actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deletedSprints": out.DeletedSprints, "deletedTasks": out.DeletedTasks})
}

// Sprints

type createSprintReq struct {
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

func (s *Server) createSprint(c *gin.Context) {
	var req createSprintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.c.CreateSprintUseCase().Execute(c.Request.Context(), usecase.CreateSprintInput{
		ProjectID:   c.Param("projectId"),
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Actor:       actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, out.Sprint)
}

func (s *Server) listSprints(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		s.fail(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.fail(c, err)
		return
	}

	out, err := s.c.ListSprintsUseCase().Execute(c.Request.Context(), usecase.ListSprintsInput{
		ProjectID: c.Param("projectId"),
		Status:    domain.SprintStatus(c.Query("status")),
		Search:    c.Query("search"),
		Page:      page,
		Limit:     limit,
		Actor:     actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	okList(c, out.Sprints, &out.Pagination)
}

type sprintView struct {
	*domain.Sprint
	Tasks []*domain.Task `json:"tasks"`
}

func (s *Server) showSprint(c *gin.Context) {
	out, err := s.c.ShowSprintUseCase().Execute(c.Request.Context(), usecase.ShowSprintInput{
		SprintID: c.Param("sprintId"),
		Actor:    actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, sprintView{Sprint: out.Sprint, Tasks: out.Tasks})
}

type updateSprintReq struct {
	Name           *string              `json:"name"`
	Description    *string              `json:"description"`
	StartDate      *time.Time           `json:"startDate"`
	EndDate        *time.Time           `json:"endDate"`
	Status         *domain.SprintStatus `json:"status"`
	ClearStartDate bool                 `json:"clearStartDate"`
	ClearEndDate   bool                 `json:"clearEndDate"`
}

func (s *Server) updateSprint(c *gin.Context) {
	var req updateSprintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.c.UpdateSprintUseCase().Execute(c.Request.Context(), usecase.UpdateSprintInput{
		SprintID:    c.Param("sprintId"),
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
		ClearStart:  req.ClearStartDate,
		ClearEnd:    req.ClearEndDate,
		Actor:       actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, out.Sprint)
}

func (s *Server) deleteSprint(c *gin.Context) {
	out, err := s.c.DeleteSprintUseCase().Execute(c.Request.Context(), usecase.DeleteSprintInput{
		SprintID: c.Param("sprintId"),
		Actor:    actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": out.Sprint.ID, "clearedTasks": out.ClearedTasks})
}

func (s *Server) recalculateProgress(c *gin.Context) {
	out, err := s.c.RecalculateProgressUseCase().Execute(c.Request.Context(), usecase.RecalculateProgressInput{
		SprintID: c.Param("sprintId"),
		Actor:    actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"sprint": out.Sprint, "previous": out.Previous, "progress": out.Progress})
}

func (s *Server) addTaskToSprint(c *gin.Context) {
	out, err := s.c.AddTaskToSprintUseCase().Execute(c.Request.Context(), sprintTaskInput(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, out.Sprint)
}

func (s *Server) removeTaskFromSprint(c *gin.Context) {
	out, err := s.c.RemoveTaskFromSprintUseCase().Execute(c.Request.Context(), sprintTaskInput(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, out.Sprint)
}

func sprintTaskInput(c *gin.Context) usecase.SprintTaskInput {
	return usecase.SprintTaskInput{
		SprintID: c.Param("sprintId"),
		TaskID:   c.Param("taskId"),
		Actor:    actor(c),
	}
}

// Tasks

type createTaskReq struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    domain.Priority `json:"priority"`
	AssigneeID  string          `json:"assigneeId"`
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.c.CreateTaskUseCase().Execute(c.Request.Context(), usecase.CreateTaskInput{
		ProjectID:   c.Param("projectId"),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		Actor:       actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, out.Task)
}

func (s *Server) importTasks(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.c.ImportTasksUseCase().Execute(c.Request.Context(), usecase.ImportTasksInput{
		ProjectID: c.Param("projectId"),
		Content:   string(body),
		DryRun:    c.Query("dryRun") == "true",
		Actor:     actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"tasks": out.Tasks, "sprints": out.Sprints})
}

func (s *Server) showTask(c *gin.Context) {
	out, err := s.c.ShowTaskUseCase().Execute(c.Request.Context(), usecase.ShowTaskInput{
		TaskID: c.Param("taskId"),
		Actor:  actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, out.Task)
}

type updateTaskReq struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Status      *string          `json:"status"`
	Priority    *domain.Priority `json:"priority"`
	AssigneeID  *string          `json:"assigneeId"`
}

func (s *Server) updateTask(c *gin.Context) {
	var req updateTaskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	out, err := s.c.UpdateTaskUseCase().Execute(c.Request.Context(), usecase.UpdateTaskInput{
		TaskID:      c.Param("taskId"),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		Actor:       actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, out.Task)
}

func (s *Server) deleteTask(c *gin.Context) {
	_, err := s.c.DeleteTaskUseCase().Execute(c.Request.Context(), usecase.DeleteTaskInput{
		TaskID: c.Param("taskId"),
		Actor:  actor(c),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}
