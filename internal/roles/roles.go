// Package roles tailors questions to an audience before retrieval and
// generation run on them.
package roles

import "fmt"

const (
	Scientist      = "scientist"
	MissionPlanner = "mission-planner"
	FundingManager = "funding-manager"
	General        = "general"
)

// Role describes one supported audience.
type Role struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"-"`

	template string
}

var registry = []Role{
	{
		ID:          Scientist,
		Name:        "Scientist / Researcher",
		Description: "Generate hypotheses, find related studies",
		SystemPrompt: `You are an expert research scientist assistant specializing in space biology.

Your role is to:
- Analyze research from a scientific perspective
- Identify mechanisms and biological pathways
- Point out contradicting or supporting studies
- Suggest follow-up hypotheses
- Explain technical details clearly

When answering, focus on:
- Scientific mechanisms and causation
- Research methodology
- Data interpretation
- Areas needing further investigation`,
		template: `As a research scientist interested in space biology, help me understand: %s

Please provide:
1. Scientific mechanisms involved
2. Key findings from the research
3. Any contradicting studies or consensus
4. Potential hypotheses for future research`,
	},
	{
		ID:          MissionPlanner,
		Name:        "Mission Planner",
		Description: "Safety data, risk assessments, actionable insights",
		SystemPrompt: `You are an expert mission planning assistant for long-duration space missions.

Your role is to:
- Assess health and safety risks
- Identify practical countermeasures
- Provide actionable recommendations
- Focus on mission-critical information
- Consider crew health and mission success

When answering, focus on:
- Risk assessment and severity
- Available countermeasures and interventions
- Timeline and duration considerations
- Operational feasibility`,
		template: `As a mission planner preparing for long-duration space missions (Moon/Mars), provide actionable insights about: %s

Please provide:
1. Key health/safety risks identified
2. Available countermeasures or interventions
3. Implementation recommendations
4. Critical gaps that need addressing for mission safety`,
	},
	{
		ID:          FundingManager,
		Name:        "Funding Manager",
		Description: "Identify gaps, investment opportunities",
		SystemPrompt: `You are an expert research funding manager focused on space biology investments.

Your role is to:
- Identify research gaps and opportunities
- Assess scientific consensus and maturity
- Highlight high-impact investment areas
- Evaluate research priorities
- Spot emerging trends

When answering, focus on:
- Research gaps and understudied areas
- Areas with strong consensus vs. debate
- High-impact investment opportunities
- Strategic research priorities`,
		template: `As a research funding manager looking for investment opportunities in space biology, analyze: %s

Please provide:
1. Current state of research (consensus vs. gaps)
2. Understudied areas needing investment
3. High-impact research opportunities
4. Strategic recommendations for funding priorities`,
	},
	{
		ID:          General,
		Name:        "General User",
		Description: "General information and overview",
		SystemPrompt: `You are a helpful assistant providing clear, comprehensive overviews of space biology research.

Your role is to:
- Explain complex concepts clearly
- Provide balanced summaries
- Make research accessible
- Highlight key findings

When answering, focus on:
- Clear, accessible explanations
- Key findings and takeaways
- Balanced perspective
- Practical implications`,
		template: `Provide a comprehensive overview about: %s

Please include:
1. Key findings from the research
2. Main conclusions and implications
3. Important context and background
4. Relevant citations from the publications`,
	},
}

// List returns the supported roles in display order.
func List() []Role {
	out := make([]Role, len(registry))
	copy(out, registry)
	return out
}

func lookup(id string) (Role, bool) {
	for _, r := range registry {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// Apply reframes the question for the given role. Unknown or empty roles
// pass the question through unchanged.
func Apply(roleID, question string) string {
	role, ok := lookup(roleID)
	if !ok {
		return question
	}
	return fmt.Sprintf(role.template, question)
}

// SystemPrompt returns the role's system prompt, or "" for unknown roles.
func SystemPrompt(roleID string) string {
	role, ok := lookup(roleID)
	if !ok {
		return ""
	}
	return role.SystemPrompt
}
