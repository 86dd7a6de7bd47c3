// Package policy holds the authorization rules for task operations. Every
// function is a pure decision over the actor and the task's ownership fields.
package policy

import "github.com/fastygo/taskflow/domain"

// CanCreateTask allows managers and admins to create tasks.
func CanCreateTask(role domain.Role) bool {
	return role == domain.RoleManager || role == domain.RoleAdmin
}

// CanViewTask allows the assignee, the creator and admins.
func CanViewTask(actor domain.Actor, task *domain.Task) bool {
	if task == nil {
		return false
	}
	return task.IsAssignedTo(actor.ID) || task.IsCreatedBy(actor.ID) || actor.IsAdmin()
}

// CanMutateTask allows the creator, managers and admins.
func CanMutateTask(actor domain.Actor, task *domain.Task) bool {
	if task == nil {
		return false
	}
	return task.IsCreatedBy(actor.ID) || actor.IsAdmin() || actor.IsManager()
}

// CanDeleteTask allows admins only.
func CanDeleteTask(actor domain.Actor) bool {
	return actor.IsAdmin()
}

// CanViewActivity follows the view rule: whoever may read a task may read its history.
func CanViewActivity(actor domain.Actor, task *domain.Task) bool {
	return CanViewTask(actor, task)
}

// CanListAllActivity allows admins to read the global audit feed.
func CanListAllActivity(actor domain.Actor) bool {
	return actor.IsAdmin()
}

// Roles lists every role, for exhaustive checks.
func Roles() []domain.Role {
	return []domain.Role{domain.RoleUser, domain.RoleManager, domain.RoleAdmin}
}
