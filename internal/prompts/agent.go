package prompts

// The reasoning agent uses the classic text-marker protocol: the model
// emits Thought / Action / Action Input lines, we run the tool and feed
// the Observation back, until it emits a Final Answer. The scratchpad
// variable carries the full transcript of prior steps, so every call
// has complete context of earlier attempts.

func init() {
	register(TaskAgent,
		MessageTemplate{
			Role: "human",
			Template: `Answer the following question as best you can. You can use tools to help you.

You have access to the following tools:

{tools}

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [{tool_names}]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Question: {input}
{agent_scratchpad}`,
		},
	)
}
