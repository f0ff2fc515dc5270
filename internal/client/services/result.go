package services

import (
	"errors"

	"github.com/dmitrijs2005/connecta/internal/client/client"
)

// Result is the outcome handed to presentation code, which never inspects
// transport errors itself.
type Result struct {
	Success bool
	Error   string
	// Fields holds per-field messages when the input was rejected.
	Fields map[string][]string
}

// ResultOf normalizes err into a Result.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return Result{Error: msg, Fields: apiErr.Fields}
	}
	return Result{Error: err.Error()}
}

func failure(msg string, err error) Result {
	r := ResultOf(err)
	r.Error = msg
	return r
}
