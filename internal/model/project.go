package model

// DataItem is a named variable bindable into step values via
// {{input:<key>}} references.
type DataItem struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	Type         string `json:"type"` // text/secret/number/date
	PromptOnRun  bool   `json:"prompt_on_run"`
	DefaultValue string `json:"default_value"`
}

// Project is an ordered step sequence plus its variable set.
type Project struct {
	Name      string     `json:"name"`
	CreatedTS float64    `json:"created_ts"`
	UpdatedTS float64    `json:"updated_ts"`
	Steps     []Step     `json:"steps"`
	Data      []DataItem `json:"data"`
}

// NewProject creates an empty project stamped with the current time.
func NewProject(name string) *Project {
	now := nowUnix()
	return &Project{
		Name:      name,
		CreatedTS: now,
		UpdatedTS: now,
	}
}

// Touch refreshes the updated timestamp.
func (p *Project) Touch() {
	p.UpdatedTS = nowUnix()
}

// AppendStep adds a step to the end of the sequence.
func (p *Project) AppendStep(s Step) {
	p.Steps = append(p.Steps, s)
	p.Touch()
}

// DeleteStep removes the step with the given id. Returns false if no step
// matched.
func (p *Project) DeleteStep(id string) bool {
	for i, s := range p.Steps {
		if s.ID == id {
			p.Steps = append(p.Steps[:i], p.Steps[i+1:]...)
			p.Touch()
			return true
		}
	}
	return false
}

// DataMap flattens the variable set for replay-time substitution.
func (p *Project) DataMap() map[string]string {
	m := make(map[string]string, len(p.Data))
	for _, d := range p.Data {
		m[d.Key] = d.Value
	}
	return m
}
