package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bankx/agent-fabric/pkg/a2a"
	"github.com/bankx/agent-fabric/pkg/cache"
	"github.com/bankx/agent-fabric/pkg/classifier"
	"github.com/bankx/agent-fabric/pkg/conversation"
	"github.com/bankx/agent-fabric/pkg/llmprovider"
	"github.com/bankx/agent-fabric/pkg/telemetry"
)

// ChatMessage is one turn in the forwarded conversation history (spec.md §6
// "POST /chat with {messages:[{role,content}], ...}").
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is one Supervisor turn (spec.md §6 supervisor client surface).
type ChatRequest struct {
	CustomerID string
	Email      string
	SessionID  string // optional; minted if empty (spec.md §4.10 step 1)
	Messages   []ChatMessage
}

// Router is the Supervisor Router (spec.md §4.10, C10): the central
// per-turn state machine tying together the cache, the hybrid classifier,
// the A2A client, and conversation state.
type Router struct {
	a2aClient         *a2a.Client
	cache             *cache.Manager
	cacheClassifier   *classifier.CacheClassifier
	routingClassifier *classifier.RoutingClassifier
	responseProvider  llmprovider.Provider
	conversations     *conversation.Manager
	cfg               Config
	logger            *slog.Logger
	telemetry         telemetry.Sink // optional; nil disables telemetry recording

	turnMu sync.Map // session_id -> *sync.Mutex, serializes turns per session (spec.md §5)
}

// NewRouter builds a Router. responseProvider is used both to format cache
// hits (step 4) and is otherwise opaque to this package — specialist agents
// own their own response generation. telemetrySink may be nil, in which case
// no telemetry events are recorded (spec.md §4.12 "Sink is pluggable").
func NewRouter(
	a2aClient *a2a.Client,
	cacheManager *cache.Manager,
	cacheClassifier *classifier.CacheClassifier,
	routingClassifier *classifier.RoutingClassifier,
	responseProvider llmprovider.Provider,
	conversations *conversation.Manager,
	cfg Config,
	telemetrySink telemetry.Sink,
) *Router {
	return &Router{
		a2aClient:         a2aClient,
		cache:             cacheManager,
		cacheClassifier:   cacheClassifier,
		routingClassifier: routingClassifier,
		responseProvider:  responseProvider,
		conversations:     conversations,
		cfg:               cfg,
		logger:            slog.Default().With("component", "supervisor_router"),
		telemetry:         telemetrySink,
	}
}

// record forwards ev to the telemetry sink if one is configured.
func (r *Router) record(category telemetry.Category, ev any) {
	if r.telemetry == nil {
		return
	}
	r.telemetry.Record(category, ev)
}

// sessionLock returns the per-session mutex, serializing turns for a given
// session_id (spec.md §5 "Per session_id, the Supervisor serializes turns"),
// grounded on the same sync.Map-of-mutex idiom pkg/registry/service.go and
// pkg/a2a/breaker.go use for their own per-key critical sections.
func (r *Router) sessionLock(sessionID string) *sync.Mutex {
	lock, _ := r.turnMu.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// HandleChat runs one turn and returns a channel of progress/content events.
// The channel is closed when the turn completes. If ctx is cancelled while
// the turn is mid-flight, no further events are delivered, but any A2A send
// already issued completes and is recorded (spec.md §4.10 "Cancellation").
func (r *Router) HandleChat(ctx context.Context, req ChatRequest) (<-chan Event, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("supervisor: chat request has no messages")
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		r.runTurn(ctx, req, events)
	}()
	return events, nil
}

// emit delivers ev unless ctx is already done, in which case it is dropped
// silently — the turn's remaining work (dispatch, state update) still runs
// to completion on an uncancelled background context (see runTurn).
func emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (r *Router) runTurn(streamCtx context.Context, req ChatRequest, events chan<- Event) {
	start := time.Now()
	sessionID := r.conversations.EnsureSession(req.SessionID, req.CustomerID)

	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	// Work that must complete regardless of the SSE stream's cancellation
	// (dispatch, cache writes, conversation-state updates) runs on a
	// detached context derived from streamCtx's values but immune to its
	// cancellation; emit() itself guards against writing to a closed-out
	// stream.
	workCtx := contextWithoutCancel(streamCtx)

	current := req.Messages[len(req.Messages)-1]
	history := req.Messages[:len(req.Messages)-1]

	emit(streamCtx, events, thinkingEvent(StepAnalyzing, StatusInProgress, "Analyzing your request", ""))
	emit(streamCtx, events, thinkingEvent(StepAnalyzing, StatusCompleted, "", ""))

	if err := r.conversations.AddMessage(workCtx, sessionID, current.Role, current.Content); err != nil {
		r.logger.Error("failed to log inbound message", "session_id", sessionID, "error", err)
	}

	// Step 2: continuation check.
	if activeAgent, ok := r.conversations.ActiveAgentForSession(sessionID); ok && isContinuation(current.Content) {
		emit(streamCtx, events, thinkingEvent(StepContinuation, StatusCompleted, "Continuing with "+activeAgent.Name, activeAgent.Name))
		r.dispatchAndStream(streamCtx, workCtx, events, sessionID, req, history, current, classifier.Agent(activeAgent.Name), "continuation", start)
		return
	}

	// Step 3: escalation fast-path.
	if isEscalation(current.Content) {
		r.routeAndStream(streamCtx, workCtx, events, sessionID, req, history, current, classifier.AgentEscalation, "escalation_phrase", start)
		return
	}

	skip := classifySkipCache(current.Content)

	// Step 4: cache probe.
	if skip == skipCacheNone {
		if served := r.tryCacheHit(streamCtx, workCtx, events, sessionID, req, current, start); served {
			return
		}
	}

	// Step 5/6: skip-cache predicates and hybrid classifier select the
	// target agent.
	agent, rule := r.selectAgent(streamCtx, skip, current.Content)
	r.routeAndStream(streamCtx, workCtx, events, sessionID, req, history, current, agent, rule, start)
}

// selectAgent implements spec.md §4.10 steps 5-6: forced routes for
// knowledge-only queries, otherwise the keyword+LLM hybrid classifier. It
// returns the chosen agent and the name of the rule that decided it, the
// latter folded into the turn's AgentDecisionEvent (spec.md §4.12).
func (r *Router) selectAgent(streamCtx context.Context, skip skipCacheReason, query string) (classifier.Agent, string) {
	switch skip {
	case skipCacheMoneyCoach:
		return classifier.AgentMoneyCoach, "skip_cache:money_coach"
	case skipCacheProductInfo:
		return classifier.AgentProductInfo, "skip_cache:product_info"
	}

	if agent, confident := classifier.KeywordClassify(query); confident {
		r.record(telemetry.CategoryTriageRuleMatch, telemetry.TriageRuleMatchEvent{
			Timestamp:   time.Now().UTC(),
			RuleName:    "keyword_classifier",
			TargetAgent: string(agent),
			Confidence:  1,
			Query:       query,
		})
		return agent, "keyword_classifier"
	}
	return r.routingClassifier.Classify(streamCtx, query), "llm_routing_classifier"
}

// tryCacheHit attempts to serve current entirely from cache, streaming the
// formatted result and synthetic progress events if it can (spec.md §4.10
// step 4). Returns true if the turn was fully served from cache.
func (r *Router) tryCacheHit(streamCtx, workCtx context.Context, events chan<- Event, sessionID string, req ChatRequest, current ChatMessage, start time.Time) bool {
	emit(streamCtx, events, thinkingEvent(StepCheckingCache, StatusInProgress, "Checking cache", ""))

	result := r.cacheClassifier.Classify(streamCtx, current.Content)
	if !result.CanUseCache {
		emit(streamCtx, events, thinkingEvent(StepCheckingCache, StatusCompleted, "miss", ""))
		return false
	}

	value, ok := r.cache.Get(streamCtx, req.CustomerID, string(result.DataType))
	if !ok {
		emit(streamCtx, events, thinkingEvent(StepCheckingCache, StatusCompleted, "miss", ""))
		return false
	}

	content, err := formatCacheHit(streamCtx, r.responseProvider, result.DataType, current.Content, value)
	if err != nil {
		r.logger.Error("cache hit formatting failed, falling back to live routing", "error", err)
		emit(streamCtx, events, thinkingEvent(StepCheckingCache, StatusCompleted, "miss", ""))
		return false
	}

	emit(streamCtx, events, thinkingEvent(StepCheckingCache, StatusCompleted, "hit", ""))
	// Synthetic routing event so the UI can still attribute the response to
	// an agent even though nothing was dispatched (spec.md §4.10 step 4
	// "a synthetic routing → {pseudo-agent} event").
	pseudoAgent := pseudoAgentFor(result.DataType)
	emit(streamCtx, events, thinkingEvent(StepRouting, StatusCompleted, "", string(pseudoAgent)))
	emit(streamCtx, events, thinkingEvent(StepAgentSelected, StatusCompleted, "", string(pseudoAgent)))

	r.streamContent(streamCtx, events, content)

	if err := r.conversations.AddMessage(workCtx, sessionID, "assistant", content); err != nil {
		r.logger.Error("failed to log cache-served reply", "session_id", sessionID, "error", err)
	}
	emit(streamCtx, events, finalEvent(sessionID, content))

	r.record(telemetry.CategoryAgentDecision, telemetry.AgentDecisionEvent{
		Timestamp:       time.Now().UTC(),
		Agent:           string(pseudoAgent),
		SessionID:       sessionID,
		UserQuery:       current.Content,
		TriageRule:      "cache_hit:" + string(result.DataType),
		Reasoning:       result.Reasoning,
		ResultStatus:    "served_from_cache",
		DurationSeconds: time.Since(start).Seconds(),
	})
	r.record(telemetry.CategoryUserMessage, telemetry.UserMessageEvent{
		Timestamp:       time.Now().UTC(),
		SessionID:       sessionID,
		CustomerID:      req.CustomerID,
		Query:           current.Content,
		ResponsePreview: previewOf(content),
		DurationSeconds: time.Since(start).Seconds(),
	})
	return true
}

// pseudoAgentFor attributes a cache hit to the agent that would otherwise
// have served this data_type live, for UI display purposes only.
func pseudoAgentFor(dataType classifier.DataType) classifier.Agent {
	switch dataType {
	case classifier.DataTypeTransactions:
		return classifier.AgentTransaction
	case classifier.DataTypeBeneficiaries, classifier.DataTypeLimits:
		return classifier.AgentPayment
	default:
		return classifier.AgentAccount
	}
}

// routeAndStream emits the routing/agent_selected events for a freshly
// classified agent, then dispatches.
func (r *Router) routeAndStream(streamCtx, workCtx context.Context, events chan<- Event, sessionID string, req ChatRequest, history []ChatMessage, current ChatMessage, agent classifier.Agent, rule string, start time.Time) {
	emit(streamCtx, events, thinkingEvent(StepRouting, StatusInProgress, "Routing your request", ""))
	emit(streamCtx, events, thinkingEvent(StepRouting, StatusCompleted, "", string(agent)))
	emit(streamCtx, events, thinkingEvent(StepAgentSelected, StatusCompleted, "", string(agent)))
	r.dispatchAndStream(streamCtx, workCtx, events, sessionID, req, history, current, agent, rule, start)
}

// dispatchAndStream sends the turn to agent over A2A and streams the reply
// (spec.md §4.10 steps 7-9).
func (r *Router) dispatchAndStream(streamCtx, workCtx context.Context, events chan<- Event, sessionID string, req ChatRequest, history []ChatMessage, current ChatMessage, agent classifier.Agent, rule string, start time.Time) {
	if !r.cfg.enabled(agent) {
		emit(streamCtx, events, finalEvent(sessionID, "That service is temporarily disabled. Please try again later."))
		r.record(telemetry.CategoryAgentDecision, telemetry.AgentDecisionEvent{
			Timestamp:       time.Now().UTC(),
			Agent:           string(agent),
			SessionID:       sessionID,
			UserQuery:       current.Content,
			TriageRule:      rule,
			ResultStatus:    "disabled",
			DurationSeconds: time.Since(start).Seconds(),
		})
		return
	}

	payload := buildDispatchPayload(agent, history, current.Content, req.Email, req.CustomerID, sessionID)

	result, err := dispatch(workCtx, r.a2aClient, r.cfg, agent, payload)
	if err != nil {
		r.logger.Error("dispatch failed", "agent", agent, "session_id", sessionID, "error", err)
		emit(streamCtx, events, thinkingEvent(StepGatheringData, StatusCompleted, "failed", string(agent)))
		emit(streamCtx, events, finalEvent(sessionID, userVisibleDispatchError(agent, err)))
		r.record(telemetry.CategoryError, telemetry.ErrorEvent{
			Timestamp: time.Now().UTC(),
			Type:      "dispatch_failure",
			Message:   err.Error(),
			Details:   map[string]any{"agent": string(agent), "session_id": sessionID},
		})
		r.record(telemetry.CategoryAgentDecision, telemetry.AgentDecisionEvent{
			Timestamp:       time.Now().UTC(),
			Agent:           string(agent),
			SessionID:       sessionID,
			UserQuery:       current.Content,
			TriageRule:      rule,
			ResultStatus:    "failed",
			DurationSeconds: time.Since(start).Seconds(),
		})
		return
	}

	// Step 9: either a single mcp_tools_invoked event, or a gathering_data
	// in_progress/completed pair — never both, to keep the emitted
	// sequence a clean prefix of the canonical step order (spec.md §4.10
	// step 9, §8 "the sequence of step values is a prefix of the fixed
	// order").
	if len(result.ToolsInvoked) > 0 {
		emit(streamCtx, events, thinkingEvent(StepMCPToolsInvoked, StatusCompleted, "", string(agent)))
	} else {
		emit(streamCtx, events, thinkingEvent(StepGatheringData, StatusInProgress, "Gathering data", string(agent)))
		emit(streamCtx, events, thinkingEvent(StepGatheringData, StatusCompleted, "", string(agent)))
	}

	emit(streamCtx, events, thinkingEvent(StepGenerating, StatusInProgress, "Generating response", string(agent)))

	// Step 8: conversation update — store active_agent (with its resolved
	// endpoint) so a later short affirmation can continue without
	// re-classifying, and append the reply to the durable log.
	if discovered, derr := r.a2aClient.Discover(workCtx, r.cfg.AgentCapabilities[agent]); derr == nil {
		if serr := r.conversations.SetActiveAgent(sessionID, string(agent), discovered.A2AEndpoint); serr != nil {
			r.logger.Error("failed to set active agent", "session_id", sessionID, "error", serr)
		}
	}
	if err := r.conversations.AddMessage(workCtx, sessionID, "assistant", result.Content); err != nil {
		r.logger.Error("failed to log agent reply", "session_id", sessionID, "error", err)
	}

	emit(streamCtx, events, thinkingEvent(StepGenerating, StatusCompleted, "", string(agent)))
	r.streamContent(streamCtx, events, result.Content)
	emit(streamCtx, events, finalEvent(sessionID, result.Content))

	for _, tool := range result.ToolsInvoked {
		r.record(telemetry.CategoryToolInvocation, telemetry.ToolInvocationEvent{
			Timestamp: time.Now().UTC(),
			Tool:      tool,
			Agent:     string(agent),
		})
	}
	r.record(telemetry.CategoryAgentDecision, telemetry.AgentDecisionEvent{
		Timestamp:       time.Now().UTC(),
		Agent:           string(agent),
		SessionID:       sessionID,
		UserQuery:       current.Content,
		TriageRule:      rule,
		ToolsInvoked:    result.ToolsInvoked,
		ResultStatus:    "dispatched",
		DurationSeconds: time.Since(start).Seconds(),
	})
	r.record(telemetry.CategoryUserMessage, telemetry.UserMessageEvent{
		Timestamp:       time.Now().UTC(),
		SessionID:       sessionID,
		CustomerID:      req.CustomerID,
		Query:           current.Content,
		ResponsePreview: previewOf(result.Content),
		DurationSeconds: time.Since(start).Seconds(),
	})
}

// previewOf truncates content to a short preview for telemetry (spec.md
// §4.12's response_preview field is a preview, not the full reply, to keep
// the daily NDJSON files small).
func previewOf(content string) string {
	const maxLen = 160
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}

// streamContent emits content as word-by-word delta events (spec.md §4.10
// step 9 "streamed word-by-word or by chunk").
func (r *Router) streamContent(streamCtx context.Context, events chan<- Event, content string) {
	words := splitWords(content)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		emit(streamCtx, events, deltaEvent(chunk))
	}
}

func userVisibleDispatchError(agent classifier.Agent, err error) string {
	if errors.Is(err, a2a.ErrBreakerOpen) {
		return "That service is temporarily unavailable. Please try again in a moment."
	}
	if errors.Is(err, a2a.ErrNoAgentAvailable) {
		return "That service is unavailable right now. Please try again later."
	}
	if agent == classifier.AgentPayment {
		return "Sorry, we couldn't complete that request. No funds were moved. Please try again."
	}
	return "Sorry, something went wrong handling your request. Please try again."
}
