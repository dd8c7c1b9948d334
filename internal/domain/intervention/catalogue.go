package intervention

import "github.com/okian/pulse/internal/domain/model"

var pillarSteps = map[model.Pillar][]string{
	model.PillarPlanning: {
		"Create or update your business plan",
		"Set 3 specific goals for this week",
		"Schedule 30 minutes of strategic planning time",
	},
	model.PillarUrgency: {
		"Complete your overdue tasks today",
		"Tackle 2 high-priority items first thing",
		"Set deadlines for all open tasks",
	},
	model.PillarLeadEngagement: {
		"Add 5 new contacts to your database",
		"Schedule 2 appointments this week",
		"Follow up with 3 past leads",
	},
	model.PillarSystems: {
		"Explore one new platform feature",
		"Generate content with the content tools",
		"Connect an integration you are not using yet",
	},
	model.PillarExecution: {
		"Complete your daily action plan",
		"Review progress on your active goals",
		"Maintain your activity streak",
	},
}

var fallbackSteps = []string{"Focus on consistent daily activity"}

var trendSteps = []string{
	"Review what changed in your routine this week",
	"Pick one pillar to focus on for the next 3 days",
	"Complete at least one qualifying activity every day",
}

// ActionSteps returns the checklist for a pillar. Unknown pillars get a
// single generic step. The returned slice is a copy.
func ActionSteps(p model.Pillar) []string {
	steps, ok := pillarSteps[p]
	if !ok {
		steps = fallbackSteps
	}
	return append([]string(nil), steps...)
}
