package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/leanflow/agentengine/internal/domain"
)

// shapeHints name the fields the schema registry checks.
var shapeHints = map[domain.AgentType]string{
	domain.AgentTypeSynthesis:  `{"themes":[{"name","description","observation_ids":[...],"waste_types":[...],"root_cause","severity"}]}`,
	domain.AgentTypeSolutions:  `{"solutions":[{"title","description","theme_names":[...],"bucket","effort","impact","confidence"}]}`,
	domain.AgentTypeSequencing: `{"waves":[{"name","order","solution_titles":[...],"rationale","duration_weeks","dependencies":[...]}]}`,
	domain.AgentTypeDesign:     `{"summary","steps":[{"id","name","lane","type"}],"connections":[{"from","to","label"}]}`,
	domain.AgentTypeStepDesign: `{"step_id","options":[{"title","description","changes":[...],"expected_impact","confidence"}]}`,
}

var promptTemplate = template.Must(template.New("prompt").Parse(`You are assisting with a process improvement workshop.
agent_type: {{.AgentType}}

Respond with a single JSON object of this shape and nothing else:
{{.Shape}}

Inputs:
{{.Inputs}}
`))

func init() {
	for _, t := range domain.AgentTypes {
		MustRegister(t, templateBuilder(t))
	}
}

func templateBuilder(agentType domain.AgentType) BuildFunc {
	return func(inputs json.RawMessage) (string, error) {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, inputs, "", "  "); err != nil {
			return "", fmt.Errorf("inputs are not valid JSON: %w", err)
		}

		var out bytes.Buffer
		err := promptTemplate.Execute(&out, struct {
			AgentType domain.AgentType
			Shape     string
			Inputs    string
		}{agentType, shapeHints[agentType], pretty.String()})
		if err != nil {
			return "", fmt.Errorf("failed to render prompt: %w", err)
		}
		return out.String(), nil
	}
}
