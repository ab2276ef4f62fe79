package a2a

// AgentProvider identifies the organization operating an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentSkill describes one capability of an agent for discovery.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentInterface declares an additional transport endpoint for an agent.
type AgentInterface struct {
	URL       string `json:"url"`
	Transport string `json:"transport"`
}

// AgentCard is the discovery document served at
// /.well-known/agent-card.json describing an agent's identity, transport and
// skills.
type AgentCard struct {
	ProtocolVersion      string           `json:"protocolVersion"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	Version              string           `json:"version"`
	URL                  string           `json:"url"`
	PreferredTransport   string           `json:"preferredTransport"`
	AdditionalInterfaces []AgentInterface `json:"additionalInterfaces,omitempty"`
	Provider             *AgentProvider   `json:"provider,omitempty"`
	Capabilities         AgentCapabilities `json:"capabilities"`
	Skills               []AgentSkill     `json:"skills"`
	DefaultInputModes    []string         `json:"defaultInputModes"`
	DefaultOutputModes   []string         `json:"defaultOutputModes"`
}

// CardOptions configure NewAgentCard.
type CardOptions struct {
	Version      string
	URL          string
	Provider     *AgentProvider
	Skills       []AgentSkill
	Streaming    bool
	InputModes   []string
	OutputModes  []string
}

// NewAgentCard builds a protocol-compliant card with sensible defaults.
// The base URL defaults to a localhost placeholder; hosted deployments
// override it from the platform environment (see the compliance package).
func NewAgentCard(name, description string, optFns ...func(o *CardOptions)) AgentCard {
	opts := CardOptions{
		Version:     "1.0.0",
		URL:         "http://localhost:8000",
		InputModes:  []string{"text/plain", "application/json"},
		OutputModes: []string{"text/plain", "application/json"},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	skills := opts.Skills
	if skills == nil {
		skills = []AgentSkill{}
	}

	return AgentCard{
		ProtocolVersion:      ProtocolVersion,
		Name:                 name,
		Description:          description,
		Version:              opts.Version,
		URL:                  opts.URL,
		PreferredTransport:   "JSONRPC",
		AdditionalInterfaces: []AgentInterface{{URL: opts.URL, Transport: "JSONRPC"}},
		Provider:             opts.Provider,
		Capabilities:         AgentCapabilities{Streaming: opts.Streaming},
		Skills:               skills,
		DefaultInputModes:    opts.InputModes,
		DefaultOutputModes:   opts.OutputModes,
	}
}
