package trust

// ExtractResponseContent is the default extraction strategy. It recognizes
// the two common chat-completion shapes:
//
//   - {"choices": [{"message": {"content": ...}}, ...]}   (OpenAI-style)
//   - {"content": [{"text": ...}, ...]}                   (Anthropic-style)
//
// and falls back to the raw response when neither matches. The extracted
// payload is what gets hashed into the receipt, not the full provider
// envelope with its volatile request ids and usage counters.
func ExtractResponseContent(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}

	if choices, ok := m["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if content, ok := msg["content"]; ok {
					return content
				}
			}
		}
	}

	if blocks, ok := m["content"].([]any); ok && len(blocks) > 0 {
		if block, ok := blocks[0].(map[string]any); ok {
			if text, ok := block["text"]; ok {
				return text
			}
		}
	}

	return raw
}
