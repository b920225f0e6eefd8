package supervisor

import "github.com/bankx/agent-fabric/pkg/classifier"

// Config is the supervisor configuration block (spec.md §6 "supervisor:
// {llm_endpoint, llm_mini_deployment, agent_a2a_urls: {...},
// enable_a2a_per_agent: {...}}"). agent_a2a_urls is expressed here as a
// capability name per agent, since routing to a specific URL is C6's job —
// the supervisor only needs the discovery capability string.
type Config struct {
	LLMEndpoint       string
	LLMMiniDeployment string
	AgentCapabilities map[classifier.Agent]string
	EnabledPerAgent   map[classifier.Agent]bool
}

// DefaultAgentCapabilities maps each closed-set Agent to the A2A discovery
// capability the corresponding specialist registers under.
func DefaultAgentCapabilities() map[classifier.Agent]string {
	return map[classifier.Agent]string{
		classifier.AgentAccount:     "account",
		classifier.AgentTransaction: "transaction",
		classifier.AgentPayment:     "payment",
		classifier.AgentProductInfo: "prodinfo",
		classifier.AgentMoneyCoach:  "ai_coach",
		classifier.AgentEscalation:  "escalation",
	}
}

// DefaultConfig returns a Config with every agent enabled and the default
// capability mapping; callers override fields as needed.
func DefaultConfig() Config {
	caps := DefaultAgentCapabilities()
	enabled := make(map[classifier.Agent]bool, len(caps))
	for agent := range caps {
		enabled[agent] = true
	}
	return Config{AgentCapabilities: caps, EnabledPerAgent: enabled}
}

// enabled reports whether agent is enabled for dispatch (spec.md §6
// "enable_a2a_per_agent"); an agent absent from the map defaults to enabled.
func (c Config) enabled(agent classifier.Agent) bool {
	v, ok := c.EnabledPerAgent[agent]
	return !ok || v
}
