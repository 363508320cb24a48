package queue

import (
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// Admit evaluates the admission algorithm over the current task statuses and
// returns the IDs of tasks to move from TODO to DOING, in declaration order.
//
// Rules:
//   - a candidate is a TODO task whose every dependency is DONE
//   - with nothing executing, the first candidate in declaration order is
//     admitted; if it allows parallel execution, every other parallel-capable
//     candidate joins the burst, otherwise it runs alone
//   - with work already executing, only parallel-capable candidates are
//     admitted; a sequential candidate never starts next to running work
//   - admission is suppressed entirely while the queue is paused
func Admit(g *Graph, tasks []models.Task, paused bool) []string {
	if paused {
		return nil
	}

	byID := make(map[string]models.Task, len(tasks))
	executing := 0
	for _, t := range tasks {
		byID[t.ID] = t
		if t.Status == models.TaskDoing || t.Status == models.TaskPaused || t.Status == models.TaskResumed {
			executing++
		}
	}

	var candidates []models.Task
	for _, id := range g.Order() {
		t := byID[id]
		if t.Status != models.TaskTodo {
			continue
		}
		ready := true
		for _, dep := range g.Dependencies(id) {
			if byID[dep].Status != models.TaskDone {
				ready = false
				break
			}
		}
		if ready {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if executing == 0 {
		head := candidates[0]
		if !head.AllowParallel {
			return []string{head.ID}
		}
		var admitted []string
		for _, c := range candidates {
			if c.AllowParallel {
				admitted = append(admitted, c.ID)
			}
		}
		return admitted
	}

	var admitted []string
	for _, c := range candidates {
		if c.AllowParallel {
			admitted = append(admitted, c.ID)
		}
	}
	return admitted
}
