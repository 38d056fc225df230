package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/cli"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/compiler"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/spf13/cobra"
)

// loadNodes compiles a graph from a .json file path or a stored script name.
// It returns a display name for the graph.
func loadNodes(cmd *cobra.Command, arg string) (string, []domain.Node, error) {
	var data []byte
	name := arg
	if strings.EqualFold(filepath.Ext(arg), ".json") {
		raw, err := os.ReadFile(arg)
		if err != nil {
			return "", nil, err
		}
		data = raw
		name = strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
	} else {
		s, _, err := loadSettings(cmd)
		if err != nil {
			return "", nil, err
		}
		stores, err := cli.OpenStores(s, cli.NewLogger(os.Stderr, s.LogLevel, nil))
		if err != nil {
			return "", nil, err
		}
		if stores.Redis != nil {
			defer stores.Redis.Close()
		}
		raw, err := stores.Scripts.Load(context.Background(), arg)
		if err != nil {
			return "", nil, err
		}
		data = raw
	}

	nodes, err := compiler.Parse(data)
	if err != nil {
		return "", nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return name, nodes, nil
}
