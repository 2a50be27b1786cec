package llm

import (
	"github.com/mpaguilar/msa-toy/internal/domain"
)

// ThinkPrompt takes the question and the JSON state summary.
const ThinkPrompt = `You are an AI assistant using the ReAct framework to answer questions.
Analyze the question and current state to determine the next step.

Question: %s
Current working memory:
%s

Provide your analysis of what information is needed and what should be done next.`

// ActionPrompt takes the comma-separated tool names and the analysis.
const ActionPrompt = `Based on the analysis, select the next action to take.
Valid action types are: tool, plan, ask, stop
Available tools: %s

Analysis: %s

Respond with a valid ActionSelection JSON object using only the valid action types listed above.`

// CompletionPrompt takes the question and the collected facts as JSON.
const CompletionPrompt = `Determine if we have sufficient information to answer the original question.

Original question: %s
Collected information:
%s

Respond with a valid CompletionDecision JSON object.`

// FinalSynthesisPrompt takes the query and the collected facts as JSON.
const FinalSynthesisPrompt = `Based on the original query and all collected information, provide a precise final answer with clear reasoning.

Original Query: %s

Collected Information:
%s

Provide a comprehensive answer that:
1. Directly addresses the original query
2. Synthesizes information from all relevant facts
3. Explains the reasoning process used to reach the conclusion
4. Identifies key supporting evidence
5. Acknowledges any uncertainties or limitations

Present your response in a clear, structured format.`

var ActionSchema = &domain.Schema{
	Name: "ActionSelection",
	Instructions: `The output must be a single JSON object with these fields:
{"action_type": "tool" | "plan" | "ask" | "stop", "action_name": string, "reasoning": string, "confidence": number between 0 and 1}
Do not include any other text.`,
}

var CompletionSchema = &domain.Schema{
	Name: "CompletionDecision",
	Instructions: `The output must be a single JSON object with these fields:
{"is_complete": boolean, "answer": string, "confidence": number between 0 and 1, "reasoning": string, "remaining_tasks": [string]}
Do not include any other text.`,
}

var SynthesisSchema = &domain.Schema{
	Name: "SynthesizedAnswer",
	Instructions: `The output must be a single JSON object with these fields:
{"answer": string, "reasoning_steps": [string], "confidence": number between 0 and 1}
Do not include any other text.`,
}

// withSchema appends the schema's format instructions to a prompt.
func withSchema(prompt string, schema *domain.Schema) string {
	if schema == nil || schema.Instructions == "" {
		return prompt
	}
	return prompt + "\n\n" + schema.Instructions
}
