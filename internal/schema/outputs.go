package schema

import (
	"fmt"
	"strconv"
)

// Enumerated value sets shared by the output shapes.
var (
	WasteTypes = []string{
		"defects",
		"overproduction",
		"waiting",
		"non_utilized_talent",
		"transportation",
		"inventory",
		"motion",
		"extra_processing",
	}
	Levels           = []string{"low", "medium", "high"}
	SolutionBuckets  = []string{"eliminate", "modify", "create"}
	DesignStepTypes  = []string{"start", "end", "task", "decision", "subprocess"}
	maxDesignOptions = 5
)

// SynthesisOutput groups observations into thematic clusters.
type SynthesisOutput struct {
	Themes []Theme `json:"themes"`
}

// Theme is one cluster of related waste observations.
type Theme struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	ObservationIDs []string `json:"observation_ids"`
	WasteTypes     []string `json:"waste_types,omitempty"`
	RootCause      string   `json:"root_cause,omitempty"`
	Severity       string   `json:"severity,omitempty"`
}

func (o *SynthesisOutput) Validate() []Violation {
	var c checker
	c.minItems("themes", len(o.Themes), 1)
	for i, th := range o.Themes {
		c.required(at("themes", i, "name"), th.Name)
		c.minItems(at("themes", i, "observation_ids"), len(th.ObservationIDs), 1)
		for j, w := range th.WasteTypes {
			c.enum(at("themes", i, "waste_types")+"["+strconv.Itoa(j)+"]", w, true, WasteTypes...)
		}
		c.enum(at("themes", i, "severity"), th.Severity, false, Levels...)
	}
	return c.violations
}

// SolutionsOutput proposes solutions for synthesized themes.
type SolutionsOutput struct {
	Solutions []Solution `json:"solutions"`
}

// Solution is a single improvement proposal.
type Solution struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ThemeNames  []string `json:"theme_names,omitempty"`
	Bucket      string   `json:"bucket"`
	Effort      string   `json:"effort,omitempty"`
	Impact      string   `json:"impact,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

func (o *SolutionsOutput) Validate() []Violation {
	var c checker
	c.minItems("solutions", len(o.Solutions), 1)
	for i, s := range o.Solutions {
		c.required(at("solutions", i, "title"), s.Title)
		c.required(at("solutions", i, "description"), s.Description)
		c.enum(at("solutions", i, "bucket"), s.Bucket, true, SolutionBuckets...)
		c.enum(at("solutions", i, "effort"), s.Effort, false, Levels...)
		c.enum(at("solutions", i, "impact"), s.Impact, false, Levels...)
		c.numberRange(at("solutions", i, "confidence"), s.Confidence, 0, 1)
	}
	return c.violations
}

// SequencingOutput orders solutions into delivery waves.
type SequencingOutput struct {
	Waves []Wave `json:"waves"`
}

// Wave is one delivery increment.
type Wave struct {
	Name           string   `json:"name"`
	Order          int      `json:"order"`
	SolutionTitles []string `json:"solution_titles"`
	Rationale      string   `json:"rationale,omitempty"`
	DurationWeeks  *float64 `json:"duration_weeks,omitempty"`
	Dependencies   []string `json:"dependencies,omitempty"`
}

func (o *SequencingOutput) Validate() []Violation {
	var c checker
	c.minItems("waves", len(o.Waves), 1)
	orders := map[string]bool{}
	for i, w := range o.Waves {
		c.required(at("waves", i, "name"), w.Name)
		c.intMin(at("waves", i, "order"), w.Order, 1)
		if w.Order >= 1 {
			c.unique(at("waves", i, "order"), orders, fmt.Sprint(w.Order))
		}
		c.minItems(at("waves", i, "solution_titles"), len(w.SolutionTitles), 1)
		c.numberRange(at("waves", i, "duration_weeks"), w.DurationWeeks, 0, 104)
	}
	return c.violations
}

// DesignOutput is a redesigned process graph.
type DesignOutput struct {
	Summary     string       `json:"summary,omitempty"`
	Steps       []DesignStep `json:"steps"`
	Connections []Connection `json:"connections,omitempty"`
}

// DesignStep is a node of the redesigned process.
type DesignStep struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Lane        string `json:"lane,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Connection is a directed edge between two steps.
type Connection struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

func (o *DesignOutput) Validate() []Violation {
	var c checker
	c.minItems("steps", len(o.Steps), 1)
	ids := map[string]bool{}
	for i, s := range o.Steps {
		c.required(at("steps", i, "id"), s.ID)
		c.unique(at("steps", i, "id"), ids, s.ID)
		c.required(at("steps", i, "name"), s.Name)
		c.enum(at("steps", i, "type"), s.Type, false, DesignStepTypes...)
	}
	for i, conn := range o.Connections {
		for _, end := range []struct{ field, id string }{{"from", conn.From}, {"to", conn.To}} {
			path := at("connections", i, end.field)
			if end.id == "" {
				c.required(path, end.id)
				continue
			}
			if !ids[end.id] {
				c.add(path, "reference", "%q does not reference a step id", end.id)
			}
		}
	}
	return c.violations
}

// StepDesignOutput lists redesign options for a single process step.
type StepDesignOutput struct {
	StepID  string         `json:"step_id,omitempty"`
	Options []DesignOption `json:"options"`
}

// DesignOption is one alternative for a step.
type DesignOption struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Changes        []string `json:"changes,omitempty"`
	ExpectedImpact string   `json:"expected_impact,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

func (o *StepDesignOutput) Validate() []Violation {
	var c checker
	c.minItems("options", len(o.Options), 1)
	c.maxItems("options", len(o.Options), maxDesignOptions)
	for i, opt := range o.Options {
		c.required(at("options", i, "title"), opt.Title)
		c.required(at("options", i, "description"), opt.Description)
		c.enum(at("options", i, "expected_impact"), opt.ExpectedImpact, false, Levels...)
		c.numberRange(at("options", i, "confidence"), opt.Confidence, 0, 1)
	}
	return c.violations
}
