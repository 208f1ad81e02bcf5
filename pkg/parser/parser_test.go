package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Step
	}{
		{
			name: "full step",
			text: "THOUGHT: I should list the directory.\nACTION: file_operations\nACTION_INPUT: {\"action\": \"list\", \"path\": \"core\"}\nANSWER:",
			want: Step{
				Thought:     "I should list the directory.",
				Action:      "file_operations",
				ActionInput: `{"action": "list", "path": "core"}`,
			},
		},
		{
			name: "answer only",
			text: "ANSWER: The answer is 4",
			want: Step{Action: NoAction, Answer: "The answer is 4"},
		},
		{
			name: "no labels",
			text: "I am not following the format at all.",
			want: Step{Action: NoAction},
		},
		{
			name: "empty",
			text: "",
			want: Step{Action: NoAction},
		},
		{
			name: "multi-line sections",
			text: "THOUGHT: first line\nsecond line\nACTION: NONE\nACTION_INPUT:\nANSWER: Line one.\nLine two.",
			want: Step{Thought: "first line\nsecond line", Action: NoAction, Answer: "Line one.\nLine two."},
		},
		{
			name: "lowercase none and quoted action",
			text: "THOUGHT: done\nACTION: none",
			want: Step{Thought: "done", Action: NoAction},
		},
		{
			name: "quoted tool name",
			text: "ACTION: `code_executor`\nACTION_INPUT: {\"code\": \"print(1)\"}",
			want: Step{Action: "code_executor", ActionInput: `{"code": "print(1)"}`},
		},
		{
			name: "fenced input",
			text: "ACTION: code_executor\nACTION_INPUT: ```json\n{\"code\": \"print(2)\"}\n```\nANSWER:",
			want: Step{Action: "code_executor", ActionInput: `{"code": "print(2)"}`},
		},
		{
			name: "first occurrence wins",
			text: "THOUGHT: one\nANSWER: first\nANSWER: second",
			want: Step{Thought: "one", Action: NoAction, Answer: "first"},
		},
		{
			name: "prose before labels",
			text: "Sure! Here is my plan.\nTHOUGHT: read it\nACTION: file_operations\nACTION_INPUT: {}",
			want: Step{Thought: "read it", Action: "file_operations", ActionInput: "{}"},
		},
		{
			name: "label words inside prose",
			text: "THOUGHT: This is arithmetic, so no ACTION: is required and I'll put it in the ANSWER: section.\nACTION: NONE\nANSWER: 4",
			want: Step{
				Thought: "This is arithmetic, so no ACTION: is required and I'll put it in the ANSWER: section.",
				Action:  NoAction,
				Answer:  "4",
			},
		},
		{
			name: "title case labels",
			text: "Thought: read it\nAction: file_operations\nAction_Input: {\"action\": \"read\"}\nAnswer:",
			want: Step{Thought: "read it", Action: "file_operations", ActionInput: `{"action": "read"}`},
		},
		{
			name: "indented labels",
			text: "  thought: simple\n\tanswer: 4",
			want: Step{Thought: "simple", Action: NoAction, Answer: "4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text))
		})
	}
}

func TestHasAction(t *testing.T) {
	assert.False(t, Step{Action: NoAction}.HasAction())
	assert.True(t, Step{Action: "web_search"}.HasAction())
}

func TestExtractJSON(t *testing.T) {
	arr, ok := ExtractJSONArray("Plan:\n[{\"id\": 1, \"depends_on\": []}]\nDone.")
	assert.True(t, ok)
	assert.Equal(t, `[{"id": 1, "depends_on": []}]`, arr)

	_, ok = ExtractJSONArray("not json")
	assert.False(t, ok)

	obj, ok := ExtractJSONObject("Review: {\"approved\": true, \"nested\": {\"a\": 1}} thanks")
	assert.True(t, ok)
	assert.Equal(t, `{"approved": true, "nested": {"a": 1}}`, obj)

	_, ok = ExtractJSONObject("} backwards {")
	assert.False(t, ok)
}
