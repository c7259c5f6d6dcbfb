package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	domain "github.com/example/todo-service/domain/todo"
)

const (
	msgCreated   = "Todo created successfully."
	msgListed    = "Todos retrieved successfully."
	msgUpdated   = "Todo updated successfully."
	msgDeleted   = "Todo deleted successfully."
	msgBadBody   = "Invalid request body."
	msgCreateErr = "Failed to create todo."
	msgListErr   = "Failed to list todos."
	msgUpdateErr = "Failed to update todo."
	msgDeleteErr = "Failed to delete todo."
)

// decodeBody parses a JSON body into v. An empty body decodes as {}.
func decodeBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.InvalidInput(msgBadBody, err.Error())
	}
	return nil
}

// createTodo handles POST /api/todos.
func (m *Module) createTodo(c *fiber.Ctx) error {
	var in domain.CreateInput
	if err := decodeBody(c, &in); err != nil {
		return sendError(c, err, msgCreateErr)
	}

	t, err := m.todos.CreateTodo(c.UserContext(), in)
	if err != nil {
		return sendError(c, err, msgCreateErr)
	}
	return sendSuccess(c, fiber.StatusCreated, msgCreated, t)
}

// listTodos handles GET /api/todos.
func (m *Module) listTodos(c *fiber.Ctx) error {
	todos, err := m.todos.ListTodos(c.UserContext())
	if err != nil {
		return sendError(c, err, msgListErr)
	}
	if todos == nil {
		todos = []*domain.Todo{}
	}

	count := len(todos)
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Success: true,
		Message: msgListed,
		Data:    todos,
		Count:   &count,
	})
}

// updateTodo handles PUT /api/todos/:id.
func (m *Module) updateTodo(c *fiber.Ctx) error {
	var in domain.UpdateInput
	if err := decodeBody(c, &in); err != nil {
		return sendError(c, err, msgUpdateErr)
	}

	t, err := m.todos.UpdateTodo(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return sendError(c, err, msgUpdateErr)
	}
	return sendSuccess(c, fiber.StatusOK, msgUpdated, t)
}

// deleteTodo handles DELETE /api/todos/:id.
func (m *Module) deleteTodo(c *fiber.Ctx) error {
	t, err := m.todos.DeleteTodo(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendError(c, err, msgDeleteErr)
	}
	return sendSuccess(c, fiber.StatusOK, msgDeleted, t)
}

// status handles GET /status.
func (m *Module) status(c *fiber.Ctx) error {
	state := "unknown"
	if m.storage != nil {
		resp, err := m.storage.Status(c.UserContext())
		if err != nil {
			m.logger.Warn("Storage status unavailable", "error", err)
		} else {
			state = resp.State
		}
	} else if m.gate != nil {
		state = m.gate.State().String()
	}

	return c.JSON(StatusResponse{
		Message:  "Todo API is running",
		Status:   "ok",
		Database: state,
	})
}

// requireStorage rejects /api requests while storage is not connected.
func (m *Module) requireStorage(c *fiber.Ctx) error {
	if m.gate == nil {
		return c.Next()
	}
	if err := m.gate.Check(); err != nil {
		return sendError(c, err, "")
	}
	return c.Next()
}
