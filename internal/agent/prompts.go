package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/teamflow/internal/tool"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// ActionSelfQuestion is the special action name for the agent asking itself
// a question instead of using a tool.
const ActionSelfQuestion = "self_question"

// ActionBlockTask is the special capability that blocks the task with a
// reason instead of completing it.
const ActionBlockTask = "block_task"

// systemPrompt renders the agent persona, the task, the tool inventory, and
// the strict output contract.
func systemPrompt(spec models.AgentSpec, tools *tool.Registry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s.\n", spec.Name)
	fmt.Fprintf(&b, "Your role is: %s.\n", spec.Role)
	fmt.Fprintf(&b, "Your goal is: %s.\n", spec.Goal)
	if spec.Background != "" {
		fmt.Fprintf(&b, "Background: %s.\n", spec.Background)
	}

	b.WriteString("\nYou work in iterations. In each turn, reply with EXACTLY ONE JSON object in one of these shapes:\n")
	b.WriteString(`1. Thought with an action: {"thought": "<reasoning>", "action": "<tool name or self_question>", "actionInput": {<tool input object or question>}}` + "\n")
	b.WriteString(`2. Observation: {"observation": "<what you learned>", "isFinalAnswerReady": <true|false>}` + "\n")
	b.WriteString(`3. Final answer: {"finalAnswer": "<the complete answer to the task>"}` + "\n")

	names := tools.Names()
	if len(names) > 0 {
		b.WriteString("\nTools available to you:\n")
		for _, name := range names {
			t, _ := tools.Get(name)
			schema, _ := json.Marshal(t.Schema())
			fmt.Fprintf(&b, "- %s: %s Input schema: %s\n", t.Name(), t.Description(), schema)
		}
	} else {
		b.WriteString("\nYou have no tools. Reason step by step and produce the final answer yourself.\n")
	}
	fmt.Fprintf(&b, "\nIf the task must not be done (unsafe, impossible, out of scope), use {\"action\": %q, \"actionInput\": {\"reason\": \"<why>\"}}.\n", ActionBlockTask)

	return b.String()
}

// initialUserMessage renders the task prompt with the accumulated context of
// previously completed tasks.
func initialUserMessage(task models.Task, workflowContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your task: %s\n", task.Description)
	if task.ExpectedOutput != "" {
		fmt.Fprintf(&b, "Expected output: %s\n", task.ExpectedOutput)
	}
	if workflowContext != "" {
		fmt.Fprintf(&b, "\nFindings and insights from previous tasks:\n%s\n", workflowContext)
	}
	b.WriteString("\nBegin. Reply with one JSON object only.")
	return b.String()
}

// Coaching feedback messages re-enter the loop as user-role messages.

func invalidJSONFeedback() string {
	return "Your last reply was not a single valid JSON object in one of the three allowed shapes. Reply again with exactly one JSON object and nothing else."
}

func selfQuestionFeedback(question string) string {
	return fmt.Sprintf("Awesome, please answer yourself the question: %s", question)
}

func toolResultFeedback(output string) string {
	return fmt.Sprintf("You got this result from the tool: %s\nRemember to reply with an observation next, and set isFinalAnswerReady once you can answer.", output)
}

func toolNotExistFeedback(name string, available []string) string {
	return fmt.Sprintf("The tool %q does not exist. Tools available to you: %s. Choose one of them or answer directly.", name, strings.Join(available, ", "))
}

func invalidToolInputFeedback(name string, err error) string {
	return fmt.Sprintf("The input you provided for tool %q does not match its schema: %v. Fix the input and try again.", name, err)
}

func toolErrorFeedback(name string, err error) string {
	return fmt.Sprintf("The tool %q failed with: %v. You can retry with different input, use another tool, or answer from what you already know.", name, err)
}

func finalAnswerRequest() string {
	return "Great. Now produce your final answer as {\"finalAnswer\": \"...\"}."
}

func forceFinalAnswerFeedback() string {
	return "You are out of reasoning budget. In your NEXT reply, produce your best final answer as {\"finalAnswer\": \"...\"} using everything gathered so far. Do not use any tool."
}
