package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-workitems/pkg/auth"
	"github.com/mattsolo1/grove-workitems/pkg/devops"
	"github.com/mattsolo1/grove-workitems/pkg/tree"
	"github.com/mattsolo1/grove-workitems/pkg/workitems"
)

func sampleProvider() *tree.Provider {
	story := tree.NewNode(workitems.KindWorkItem, "Restore cart", "3", "Active", nil, tree.WithChildren())
	epic := tree.NewNode(workitems.KindWorkItem, "Checkout", "1", "New", nil, tree.WithChildren(story))
	project := tree.NewNode(workitems.KindProject, "Contoso", "", "", tree.Static(epic))
	source := tree.NewNode(workitems.KindSource, "contoso", "", "https://dev.azure.com/contoso/", tree.Static(project))
	return tree.NewProvider([]*tree.Node{source})
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTree(context.Background(), &buf, sampleProvider(), 0, true))

	assert.Equal(t, ""+
		"▸ contoso\n"+
		"  ▸ Contoso\n"+
		"    ▸ Checkout #1 [New]\n"+
		"      • Restore cart #3 [Active]\n", buf.String())
}

func TestPrintTreeDepth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTree(context.Background(), &buf, sampleProvider(), 2, false))
	assert.Equal(t, "contoso\n  Contoso\n", buf.String())
}

func TestCollectTree(t *testing.T) {
	entries, err := collectTree(context.Background(), sampleProvider(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	project := entries[0].Children[0]
	assert.Equal(t, "Contoso", project.Title)
	epic := project.Children[0]
	assert.Equal(t, "1", epic.Description)
	assert.True(t, epic.Expandable)
	require.Len(t, epic.Children, 1)
	assert.False(t, epic.Children[0].Expandable)

	empty, err := collectTree(context.Background(), tree.NewProvider(nil), 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestPrintTreeEmptyProjectIsLeaf(t *testing.T) {
	empty := tree.NewNode(workitems.KindProject, "Adventure Works", "", "", tree.Static())
	source := tree.NewNode(workitems.KindSource, "contoso", "", "", tree.Static(empty))
	p := tree.NewProvider([]*tree.Node{source})

	var buf bytes.Buffer
	require.NoError(t, printTree(context.Background(), &buf, p, 0, true))
	assert.Equal(t, "▸ contoso\n  • Adventure Works\n", buf.String())

	entries, err := collectTree(context.Background(), p, 0)
	require.NoError(t, err)
	assert.True(t, entries[0].Expandable)
	assert.False(t, entries[0].Children[0].Expandable)
}

func TestCollectTreeUnvisitedStaysExpandable(t *testing.T) {
	entries, err := collectTree(context.Background(), sampleProvider(), 2)
	require.NoError(t, err)
	assert.True(t, entries[0].Children[0].Expandable, "a project beyond the depth limit is not loaded")
}

func TestCollectTreePropagatesLoadErrors(t *testing.T) {
	failing := tree.NewNode(workitems.KindSource, "down", "", "", func(ctx context.Context) ([]*tree.Node, error) {
		return nil, errors.New("offline")
	})
	_, err := collectTree(context.Background(), tree.NewProvider([]*tree.Node{failing}), 0)
	assert.ErrorContains(t, err, "offline")
}

func TestExplainProfileError(t *testing.T) {
	unauthorized := fmt.Errorf("get profile: %w", &devops.TransportError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"})
	assert.ErrorContains(t, explainProfileError(unauthorized), "all accessible organizations")

	assert.ErrorContains(t, explainProfileError(fmt.Errorf("get session: %w", auth.ErrNoSession)), "wi login")

	other := errors.New("boom")
	assert.Equal(t, other, explainProfileError(other))
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "Platform: "+info.Platform)
}
