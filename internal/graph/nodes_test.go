package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/pcfledger/internal/models"
)

func TestNextNodeID(t *testing.T) {
	assert.Equal(t, "p1", NextNodeID(nil))
	assert.Equal(t, "p13", NextNodeID([]models.ProcessNode{{ID: "p3"}, {ID: "p12"}, {ID: "custom"}}))
}

func TestAddProcess(t *testing.T) {
	g := Empty()
	first := AddProcess(&g, "", "")
	second := AddProcess(&g, "Shipping", models.PhaseDistribution)

	assert.Equal(t, "p1", first.ID)
	assert.Equal(t, DefaultTitle, first.Title)
	assert.Equal(t, models.PhaseProduction, first.Stage)
	assert.Equal(t, 360.0, first.Position.X)

	assert.Equal(t, "p2", second.ID)
	assert.Equal(t, 640.0, second.Position.X)
	assert.Len(t, g.Nodes, 2)
}
