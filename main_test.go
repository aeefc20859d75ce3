package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	for _, name := range []string{"serve", "resolve", "folder", "link", "import", "refresh"} {
		assert.NotNil(t, app.Command(name), name)
	}

	link := app.Command("link")
	require.NotNil(t, link)
	var subs []string
	for _, sub := range link.Subcommands {
		subs = append(subs, sub.Name)
	}
	assert.Equal(t, []string{"add", "list", "refetch"}, subs)
}

func TestResolve_RequiresURL(t *testing.T) {
	err := newApp().Run([]string{"linkmeta", "--quiet", "resolve"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one URL is required")
}
