package retell

import "encoding/json"

// Call is the call object returned by the Retell API and delivered inside
// webhook envelopes. Timestamps arrive as epoch numbers that may be seconds
// or milliseconds depending on the event source, so they are kept as
// json.Number and disambiguated at parse time. Any remote fields not listed
// here are ignored by construction.
type Call struct {
	CallID                    string                 `json:"call_id"`
	AgentID                   string                 `json:"agent_id"`
	AgentName                 string                 `json:"agent_name,omitempty"`
	CallType                  string                 `json:"call_type,omitempty"`
	Direction                 string                 `json:"direction,omitempty"`
	CallStatus                string                 `json:"call_status,omitempty"`
	DisconnectionReason       *string                `json:"disconnection_reason,omitempty"`
	FromNumber                string                 `json:"from_number,omitempty"`
	ToNumber                  string                 `json:"to_number,omitempty"`
	StartTimestamp            json.Number            `json:"start_timestamp,omitempty"`
	EndTimestamp              json.Number            `json:"end_timestamp,omitempty"`
	DurationMs                *int64                 `json:"duration_ms,omitempty"`
	Metadata                  map[string]interface{} `json:"metadata,omitempty"`
	RetellLLMDynamicVariables map[string]interface{} `json:"retell_llm_dynamic_variables,omitempty"`
	CollectedDynamicVariables map[string]interface{} `json:"collected_dynamic_variables,omitempty"`
	Transcript                *string                `json:"transcript,omitempty"`
	TranscriptObject          []interface{}          `json:"transcript_object,omitempty"`
	TranscriptWithToolCalls   []interface{}          `json:"transcript_with_tool_calls,omitempty"`
	RecordingURL              *string                `json:"recording_url,omitempty"`
	PublicLogURL              *string                `json:"public_log_url,omitempty"`
	CallAnalysis              map[string]interface{} `json:"call_analysis,omitempty"`
	CallCost                  map[string]interface{} `json:"call_cost,omitempty"`
	LLMTokenUsage             map[string]interface{} `json:"llm_token_usage,omitempty"`
}

// CreatePhoneCallRequest is the request body for create-phone-call.
type CreatePhoneCallRequest struct {
	FromNumber                string                 `json:"from_number"`
	ToNumber                  string                 `json:"to_number"`
	OverrideAgentID           string                 `json:"override_agent_id,omitempty"`
	Metadata                  map[string]interface{} `json:"metadata,omitempty"`
	RetellLLMDynamicVariables map[string]interface{} `json:"retell_llm_dynamic_variables,omitempty"`
}

// KnowledgeBaseSource is one source item inside a remote knowledge base.
// Different source types report their location under different keys, so all
// candidates are decoded.
type KnowledgeBaseSource struct {
	SourceID   string `json:"source_id"`
	Type       string `json:"type"`
	Title      string `json:"title,omitempty"`
	Filename   string `json:"filename,omitempty"`
	URL        string `json:"url,omitempty"`
	FileURL    string `json:"file_url,omitempty"`
	ContentURL string `json:"content_url,omitempty"`
}

// DisplayTitle returns the best available human-readable name for a source.
func (s *KnowledgeBaseSource) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Filename
}

// Location returns the best available URL for a source.
func (s *KnowledgeBaseSource) Location() string {
	switch {
	case s.URL != "":
		return s.URL
	case s.FileURL != "":
		return s.FileURL
	default:
		return s.ContentURL
	}
}

// KnowledgeBase is the remote representation of a knowledge base.
type KnowledgeBase struct {
	KnowledgeBaseID      string                `json:"knowledge_base_id"`
	KnowledgeBaseName    string                `json:"knowledge_base_name,omitempty"`
	Status               string                `json:"status,omitempty"`
	KnowledgeBaseSources []KnowledgeBaseSource `json:"knowledge_base_sources,omitempty"`
}

// CreateKnowledgeBaseRequest is the request body for create-knowledge-base.
type CreateKnowledgeBaseRequest struct {
	KnowledgeBaseName  string              `json:"knowledge_base_name"`
	KnowledgeBaseURLs  []string            `json:"knowledge_base_urls,omitempty"`
	KnowledgeBaseTexts []KnowledgeBaseText `json:"knowledge_base_texts,omitempty"`
}

// KnowledgeBaseText is an inline text source for knowledge base creation.
type KnowledgeBaseText struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// UpdateLLMRequest is the request body for update-retell-llm. States carries
// the normalized workflow state graph; StartingState must name the first
// state of that graph.
type UpdateLLMRequest struct {
	States        []interface{} `json:"states,omitempty"`
	StartingState string        `json:"starting_state,omitempty"`
	GeneralPrompt string        `json:"general_prompt,omitempty"`
}

// LLM is the remote representation of a Retell response engine.
type LLM struct {
	LLMID         string        `json:"llm_id"`
	StartingState string        `json:"starting_state,omitempty"`
	States        []interface{} `json:"states,omitempty"`
}
