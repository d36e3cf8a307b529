package output

import (
	"fmt"
	"path"
	"slices"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/loadout-dev/loadout/internal/application/dto"
	"github.com/loadout-dev/loadout/internal/domain/entities"
	"github.com/loadout-dev/loadout/internal/domain/values"
)

const sarifTimeLayout = "2006-01-02T15:04:05.000Z"

type sarifMapper struct {
	result    *dto.BuildResult
	rules     map[string]bool
	artifacts map[string]bool
}

func newSARIFMapper(result *dto.BuildResult) *sarifMapper {
	return &sarifMapper{
		result:    result,
		rules:     make(map[string]bool),
		artifacts: make(map[string]bool),
	}
}

func (m *sarifMapper) mapToRun(run *sarif.Run) {
	m.addChangeResults(run)
	m.addDiagnosticResults(run)
	m.addInvocation(run)
}

func changeRuleID(c values.ChangeType) string {
	return "change/" + string(c)
}

func diagnosticRuleID(d entities.Diagnostic) string {
	return "warning/" + string(d.Stage)
}

func (m *sarifMapper) addRule(run *sarif.Run, id, description string) {
	if m.rules[id] {
		return
	}
	m.rules[id] = true

	rule := sarif.NewReportingDescriptor().WithID(id)
	rule.WithName(id)
	rule.WithShortDescription(&sarif.MultiformatMessageString{Text: ptrString(description)})
	run.Tool.Driver.AddRule(rule)
}

func (m *sarifMapper) addChangeResults(run *sarif.Run) {
	for _, out := range m.result.Outputs {
		for _, ch := range out.Diff.Changes {
			if ch.Change == values.ChangeUnchanged {
				continue
			}
			id := changeRuleID(ch.Change)
			m.addRule(run, id, fmt.Sprintf("Staged path %s since the previous build", ch.Change))

			uri := path.Join(out.Tool, ch.Path)
			result := sarif.NewRuleResult(id)
			result.Level = "note"
			result.Kind = "informational"
			result.Message = sarif.NewTextMessage(fmt.Sprintf("%s: %s %s", out.Tool, ch.Path, ch.Change))
			result.Locations = []*sarif.Location{location(uri)}

			props := sarif.NewPropertyBag()
			props.Add("tool", out.Tool)
			if !ch.Previous.IsEmpty() {
				props.Add("previous", ch.Previous.String())
			}
			if !ch.Current.IsEmpty() {
				props.Add("current", ch.Current.String())
			}
			result.WithProperties(props)
			run.AddResult(result)

			if ch.Change != values.ChangeRemoved {
				m.addArtifact(run, uri)
			}
		}
	}
}

func (m *sarifMapper) addDiagnosticResults(run *sarif.Run) {
	for _, d := range m.result.Diagnostics {
		id := diagnosticRuleID(d)
		m.addRule(run, id, fmt.Sprintf("Warning raised by the %s stage", d.Stage))

		result := sarif.NewRuleResult(id)
		result.Level = "warning"
		result.Kind = "review"
		result.Message = sarif.NewTextMessage(d.Message)
		if d.File != "" {
			result.Locations = []*sarif.Location{location(d.File)}
		}

		props := sarif.NewPropertyBag()
		if d.ComponentID != "" {
			props.Add("component", d.ComponentID)
		}
		if d.Tool != "" {
			props.Add("tool", d.Tool)
		}
		result.WithProperties(props)
		run.AddResult(result)
	}
}

func (m *sarifMapper) addArtifact(run *sarif.Run, uri string) {
	if m.artifacts[uri] {
		return
	}
	m.artifacts[uri] = true
	run.AddArtifact(sarif.NewArtifact().WithLocation(sarif.NewArtifactLocation().WithURI(uri)))
}

func (m *sarifMapper) addInvocation(run *sarif.Run) {
	invocation := sarif.NewInvocation()
	invocation.ExecutionSuccessful = ptrBool(true)

	start := m.result.Metadata.ProcessedAt.UTC()
	startTime := start.Format(sarifTimeLayout)
	endTime := start.Add(m.result.Metadata.Duration).Format(sarifTimeLayout)
	invocation.StartTimeUtc = &startTime
	invocation.EndTimeUtc = &endTime

	props := sarif.NewPropertyBag()
	props.Add("profile", m.result.Profile)
	props.Add("buildId", m.result.BuildID)
	props.Add("tools", slices.Clone(m.result.Tools))
	props.Add("written", m.result.Metadata.Written)
	invocation.WithProperties(props)

	run.AddInvocation(invocation)
}

func location(uri string) *sarif.Location {
	pLoc := sarif.NewPhysicalLocation().
		WithArtifactLocation(sarif.NewArtifactLocation().WithURI(uri))
	return sarif.NewLocation().WithPhysicalLocation(pLoc)
}
