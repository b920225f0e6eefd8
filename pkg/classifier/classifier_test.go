package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bankx/agent-fabric/pkg/llmprovider"
)

type stubProvider struct {
	response string
	err      error
}

func (s stubProvider) Complete(_ context.Context, _ llmprovider.CompletionRequest) (string, error) {
	return s.response, s.err
}

func TestKeywordClassify_ConfidentOnUniqueHighScore(t *testing.T) {
	agent, confident := KeywordClassify("what is my account balance")
	assert.True(t, confident)
	assert.Equal(t, AgentAccount, agent)
}

func TestKeywordClassify_FuzzyTransferMisspellingScoresPayment(t *testing.T) {
	agent, confident := KeywordClassify("I want to trasfer money to my friend")
	assert.True(t, confident)
	assert.Equal(t, AgentPayment, agent)
}

func TestKeywordClassify_AmbiguousFallsBackToLLM(t *testing.T) {
	_, confident := KeywordClassify("hello")
	assert.False(t, confident)
}

func TestKeywordClassify_AmountToNamePatternIsStrongPaymentSignal(t *testing.T) {
	agent, confident := KeywordClassify("send $500 to bob")
	assert.True(t, confident)
	assert.Equal(t, AgentPayment, agent)
}

func TestCacheClassifier_DegradesToNoCacheOnProviderError(t *testing.T) {
	c := NewCacheClassifier(stubProvider{err: errors.New("provider down")})
	result := c.Classify(context.Background(), "what is my balance")
	assert.False(t, result.CanUseCache)
}

func TestCacheClassifier_ParsesJSONResponse(t *testing.T) {
	c := NewCacheClassifier(stubProvider{response: `{"can_use_cache": true, "data_type": "balance", "reasoning": "read-only balance query"}`})
	result := c.Classify(context.Background(), "what is my balance")
	assert.True(t, result.CanUseCache)
	assert.Equal(t, DataTypeBalance, result.DataType)
}

func TestCacheClassifier_NilProviderDegradesSafely(t *testing.T) {
	c := NewCacheClassifier(nil)
	result := c.Classify(context.Background(), "what is my balance")
	assert.False(t, result.CanUseCache)
}

func TestRoutingClassifier_DegradesToAccountAgentOnFailure(t *testing.T) {
	c := NewRoutingClassifier(stubProvider{err: errors.New("provider down")})
	agent := c.Classify(context.Background(), "some ambiguous query")
	assert.Equal(t, DefaultRoutingAgent, agent)
}

func TestRoutingClassifier_RejectsAgentOutsideClosedSet(t *testing.T) {
	c := NewRoutingClassifier(stubProvider{response: "Some Random Agent"})
	agent := c.Classify(context.Background(), "query")
	assert.Equal(t, DefaultRoutingAgent, agent)
}

func TestRoutingClassifier_AcceptsValidAgent(t *testing.T) {
	c := NewRoutingClassifier(stubProvider{response: "Escalation Agent"})
	agent := c.Classify(context.Background(), "I want to speak to someone")
	assert.Equal(t, AgentEscalation, agent)
}
