// Package compliance validates agent cards against the A2A protocol and
// detects the hosting platform from the environment.
package compliance

import (
	"fmt"
	"os"
	"regexp"

	"github.com/hupe1980/medflow/a2a"
)

// EnvAppURL names the base-URL variable a hosted deployment sets. Its
// presence marks a hosted environment; its value carries the agent ID.
const EnvAppURL = "HU_APP_URL"

var agentIDRe = regexp.MustCompile(`([a-z]{3}-[a-z]{3}-[a-z]{3})`)

// Report is the outcome of validating an agent card. Errors make the card
// non-compliant; warnings are advisory.
type Report struct {
	Compliant bool
	Errors    []string
	Warnings  []string
}

// Summary renders the report outcome as one line.
func (r *Report) Summary() string {
	if r.Compliant {
		return "agent card is fully A2A compliant"
	}
	return fmt.Sprintf("agent card has %d compliance error(s) and %d warning(s)",
		len(r.Errors), len(r.Warnings))
}

// ValidatorOptions configure NewValidator.
type ValidatorOptions struct {
	// Hosted enables the hosted-platform checks (base URL match, agent ID
	// pattern in the URL).
	Hosted bool
}

// Validator checks agent cards against A2A v0.3.0.
type Validator struct {
	hosted bool
}

// NewValidator creates a card validator.
func NewValidator(optFns ...func(o *ValidatorOptions)) *Validator {
	opts := ValidatorOptions{
		Hosted: Detect().Hosted,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Validator{hosted: opts.Hosted}
}

// Validate runs all compliance checks against a card.
func (v *Validator) Validate(card *a2a.AgentCard) *Report {
	report := &Report{}

	v.checkRequiredFields(card, report)
	v.checkProtocolVersion(card, report)
	v.checkPlatformRequirements(card, report)
	v.checkCapabilities(card, report)

	report.Compliant = len(report.Errors) == 0

	return report
}

func (v *Validator) checkRequiredFields(card *a2a.AgentCard, report *Report) {
	required := []struct {
		value string
		field string
	}{
		{card.Name, "name"},
		{card.Description, "description"},
		{card.URL, "url"},
		{card.PreferredTransport, "preferredTransport"},
		{card.Version, "version"},
	}

	for _, f := range required {
		if f.value == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("agent card field %q is required", f.field))
		}
	}

	if card.Provider != nil && card.Provider.Organization == "" {
		report.Errors = append(report.Errors, "agent card provider.organization is required")
	}

	if len(card.DefaultInputModes) == 0 {
		report.Errors = append(report.Errors, "agent card defaultInputModes is required")
	}

	if len(card.DefaultOutputModes) == 0 {
		report.Errors = append(report.Errors, "agent card defaultOutputModes is required")
	}

	if card.Skills == nil {
		report.Errors = append(report.Errors, "agent card skills must be a list (may be empty)")
	}
}

func (v *Validator) checkProtocolVersion(card *a2a.AgentCard, report *Report) {
	switch card.ProtocolVersion {
	case "":
		report.Errors = append(report.Errors, "agent card protocolVersion is required")
	case a2a.ProtocolVersion:
	default:
		report.Errors = append(report.Errors, fmt.Sprintf("protocol version must be %q, got %q",
			a2a.ProtocolVersion, card.ProtocolVersion))
	}
}

func (v *Validator) checkPlatformRequirements(card *a2a.AgentCard, report *Report) {
	if !v.hosted {
		return
	}

	if appURL := os.Getenv(EnvAppURL); appURL != "" && card.URL != appURL {
		report.Errors = append(report.Errors, fmt.Sprintf("agent card url must match %s: %s", EnvAppURL, appURL))
	}

	if card.URL != "" && !agentIDRe.MatchString(card.URL) {
		report.Warnings = append(report.Warnings, "hosted agent url should contain an agent ID (xxx-xxx-xxx)")
	}
}

func (v *Validator) checkCapabilities(card *a2a.AgentCard, report *Report) {
	if !card.Capabilities.StateTransitionHistory {
		report.Warnings = append(report.Warnings, "stateTransitionHistory capability is recommended")
	}
}

// Platform describes the detected hosting environment.
type Platform struct {
	Hosted      bool
	AgentURL    string
	AgentID     string
	Environment string
}

// Detect inspects the environment and reports the hosting platform. Without
// a hosted base URL the agent is assumed to run locally in development.
func Detect() *Platform {
	appURL := os.Getenv(EnvAppURL)

	p := &Platform{
		Hosted:      appURL != "",
		AgentURL:    appURL,
		Environment: "development",
	}

	if p.Hosted {
		p.Environment = "production"
		p.AgentID = ExtractAgentID(appURL)
	} else {
		p.AgentURL = "http://localhost:8000"
	}

	return p
}

// ExtractAgentID pulls the xxx-xxx-xxx agent ID out of a hosted URL.
// Returns "" when the URL carries none.
func ExtractAgentID(url string) string {
	return agentIDRe.FindString(url)
}
