package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/pcfledger/internal/models"
)

// NextNodeID returns "p<N>" where N is one above the highest number
// embedded in any existing node id.
func NextNodeID(nodes []models.ProcessNode) string {
	highest := 0
	for _, n := range nodes {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, n.ID)
		if v, err := strconv.Atoi(digits); err == nil && v > highest {
			highest = v
		}
	}
	return fmt.Sprintf("p%d", highest+1)
}

// stageColumnWidth is the horizontal spacing of lifecycle columns on the canvas.
const stageColumnWidth = 280

// StageX returns the canvas x coordinate of the column for stage.
func StageX(stage models.Phase) float64 {
	stage = stage.OrDefault()
	for i, p := range models.Phases {
		if p == stage {
			return float64(80 + i*stageColumnWidth)
		}
	}
	return 80
}

// AddProcess appends a new process to g in the column for stage and
// returns it. An empty title uses DefaultTitle.
func AddProcess(g *models.Graph, title string, stage models.Phase) models.ProcessNode {
	if title == "" {
		title = DefaultTitle
	}
	stage = stage.OrDefault()
	node := models.ProcessNode{
		ID:         NextNodeID(g.Nodes),
		Type:       DefaultNodeType,
		Title:      title,
		Stage:      stage,
		Position:   models.Position{X: StageX(stage), Y: 120},
		Elementary: &models.Elementary{Inputs: []models.ElementaryItem{}, Outputs: []models.ElementaryItem{}},
	}
	g.Nodes = append(g.Nodes, node)
	return node
}
