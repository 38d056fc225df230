package main

import (
	"testing"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/validator"
	"github.com/stretchr/testify/assert"
)

func TestStarterGraphIsValid(t *testing.T) {
	report := validator.ValidateGraph(starterGraph())
	assert.NoError(t, report.Err())
	assert.Empty(t, report.Warnings())
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "serve", "compile", "validate", "graph", "mcp", "signal", "new", "version"} {
		assert.Contains(t, names, want)
	}
}
